package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trufnetwork/zkattest/attestation"
	"github.com/trufnetwork/zkattest/attestation/attestortest"
	"github.com/trufnetwork/zkattest/attestation/metrics"
)

const (
	schemaID = "b7724d4fce7d480ca9658730fdc4b8cf"
	txHash   = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

var account = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type fakeWallet struct {
	account   common.Address
	envErr    error
	submitErr error
	// submitTxID is returned with submitErr, as for a broadcast transaction.
	submitTxID string
	submitted  []*attestation.AttestationCallPayload
}

func (f *fakeWallet) Submit(_ context.Context, p *attestation.AttestationCallPayload) (string, error) {
	if f.submitErr != nil {
		return f.submitTxID, f.submitErr
	}
	f.submitted = append(f.submitted, p)
	return txHash, nil
}

func (f *fakeWallet) CheckEnvironment(context.Context) error { return f.envErr }

func (f *fakeWallet) Account() common.Address { return f.account }

type harness struct {
	attestor *attestortest.Attestor
	wallet   *fakeWallet
	metrics  *metrics.PrometheusMetrics
	handler  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	a, err := attestortest.New()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	h := &harness{attestor: a, wallet: &fakeWallet{account: account}, metrics: metrics.NewPrometheusMetrics(reg)}
	h.handler = New(attestation.NewSignatureVerifier(a.Policy(), nil),
		WithWallet(h.wallet),
		WithExplorer("https://explorer-holesky.morphl2.io/tx/"),
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(h.metrics),
		WithGatherer(reg),
	).Router()
	return h
}

func (h *harness) bundle(t *testing.T, schema string, acct common.Address) json.RawMessage {
	t.Helper()
	raw, err := h.attestor.Launch(context.Background(), schema, acct)
	require.NoError(t, err)
	return raw
}

func (h *harness) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	h.metrics.RecordAttemptStarted(context.Background(), schemaID)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zkattest_attempts_started_total")
}

func TestRequestIDPropagates(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestVerify(t *testing.T) {
	h := newHarness(t)

	t.Run("Valid", func(t *testing.T) {
		rec := h.post(t, "/v1/attestations/verify", verifyRequest{
			SchemaID: schemaID,
			Account:  account.Hex(),
			Bundle:   h.bundle(t, schemaID, account),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Payload  map[string]string `json:"payload"`
			Calldata string            `json:"calldata"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, account.Hex(), resp.Payload["recipient"])

		calldata, err := hexutil.Decode(resp.Calldata)
		require.NoError(t, err)
		payload, err := attestation.UnpackCallPayload(calldata)
		require.NoError(t, err)
		assert.Equal(t, attestation.ToBytes32(schemaID), payload.SchemaId)
	})

	t.Run("SchemaMismatch", func(t *testing.T) {
		rec := h.post(t, "/v1/attestations/verify", verifyRequest{
			SchemaID: "99f040afb92349a28991ffed8bd0c146",
			Account:  account.Hex(),
			Bundle:   h.bundle(t, schemaID, account),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "SchemaMismatch", body["reason"])
		assert.Equal(t, "trust", body["kind"])
	})

	t.Run("UntrustedAllocator", func(t *testing.T) {
		rogue, err := attestortest.New()
		require.NoError(t, err)
		raw, err := rogue.Launch(context.Background(), schemaID, account)
		require.NoError(t, err)

		rec := h.post(t, "/v1/attestations/verify", verifyRequest{SchemaID: schemaID, Account: account.Hex(), Bundle: raw})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "UntrustedAllocator", decodeBody(t, rec)["reason"])
	})

	t.Run("MalformedBundle", func(t *testing.T) {
		rec := h.post(t, "/v1/attestations/verify", verifyRequest{
			SchemaID: schemaID,
			Account:  account.Hex(),
			Bundle:   json.RawMessage(`{"taskId":""}`),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "MalformedBundle", decodeBody(t, rec)["reason"])
	})

	t.Run("BadRequest", func(t *testing.T) {
		rec := h.post(t, "/v1/attestations/verify", map[string]string{"schemaId": schemaID, "account": "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.post(t, "/v1/attestations/verify", map[string]any{"unknown": true})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAttest(t *testing.T) {
	t.Run("Confirmed", func(t *testing.T) {
		h := newHarness(t)
		rec := h.post(t, "/v1/attestations", attestRequest{SchemaID: schemaID, Bundle: h.bundle(t, schemaID, account)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{
			"state": "Confirmed",
			"txHash": "`+txHash+`",
			"explorerUrl": "https://explorer-holesky.morphl2.io/tx/`+txHash+`"
		}`, rec.Body.String())
		require.Len(t, h.wallet.submitted, 1)
		assert.Equal(t, account, h.wallet.submitted[0].Recipient)
	})

	t.Run("RecipientMismatch", func(t *testing.T) {
		h := newHarness(t)
		h.attestor.BindRecipient = true
		other := common.HexToAddress("0x00000000000000000000000000000000000000bb")

		rec := h.post(t, "/v1/attestations", attestRequest{SchemaID: schemaID, Bundle: h.bundle(t, schemaID, other)})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "RecipientMismatch", decodeBody(t, rec)["reason"])
		assert.Empty(t, h.wallet.submitted)
	})

	t.Run("WrongNetwork", func(t *testing.T) {
		h := newHarness(t)
		h.wallet.envErr = attestation.NewError(attestation.ReasonWrongNetwork, "chain 1")

		rec := h.post(t, "/v1/attestations", attestRequest{SchemaID: schemaID, Bundle: h.bundle(t, schemaID, account)})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "WrongNetwork", body["reason"])
		assert.Equal(t, "environment", body["kind"])
	})

	t.Run("SubmissionFailed", func(t *testing.T) {
		h := newHarness(t)
		h.wallet.submitErr = errors.New("execution reverted")

		rec := h.post(t, "/v1/attestations", attestRequest{SchemaID: schemaID, Bundle: h.bundle(t, schemaID, account)})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "SubmissionFailed", body["state"])
		assert.Contains(t, body["error"], "execution reverted")
		assert.NotContains(t, body, "txHash")
	})

	t.Run("RevertedAfterBroadcast", func(t *testing.T) {
		h := newHarness(t)
		h.wallet.submitErr = errors.New("transaction reverted: in block 9")
		h.wallet.submitTxID = txHash

		rec := h.post(t, "/v1/attestations", attestRequest{SchemaID: schemaID, Bundle: h.bundle(t, schemaID, account)})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "SubmissionFailed", body["state"])
		assert.Equal(t, txHash, body["txHash"])
		assert.Equal(t, "https://explorer-holesky.morphl2.io/tx/"+txHash, body["explorerUrl"])
	})

	t.Run("NoWallet", func(t *testing.T) {
		a, err := attestortest.New()
		require.NoError(t, err)
		handler := New(attestation.NewSignatureVerifier(a.Policy(), nil)).Router()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/attestations", bytes.NewReader([]byte(`{}`))))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
