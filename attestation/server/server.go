// Package server exposes bundle verification and attestation submission over
// HTTP.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation"
	"github.com/trufnetwork/zkattest/attestation/launcher"
	"github.com/trufnetwork/zkattest/attestation/metrics"
	"github.com/trufnetwork/zkattest/attestation/orchestrator"
)

// maxRequestBody bounds request bodies; bundles are a few hundred bytes.
const maxRequestBody = 64 << 10

// Wallet submits attestations on behalf of the server's own account.
// *chain.Submitter satisfies it.
type Wallet interface {
	orchestrator.Submitter
	orchestrator.EnvironmentChecker
	Account() common.Address
}

// Server holds the HTTP handlers.
type Server struct {
	verifier *attestation.SignatureVerifier
	wallet   Wallet
	explorer string

	logger   *zap.Logger
	metrics  metrics.MetricsRecorder
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithWallet enables POST /v1/attestations.
func WithWallet(w Wallet) Option {
	return func(s *Server) { s.wallet = w }
}

// WithExplorer sets the transaction explorer prefix.
func WithExplorer(base string) Option {
	return func(s *Server) { s.explorer = base }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger.Named("server") }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.MetricsRecorder) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer serves the gatherer's metrics on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a server around verifier.
func New(verifier *attestation.SignatureVerifier, opts ...Option) *Server {
	s := &Server{
		verifier: verifier,
		logger:   zap.NewNop(),
		metrics:  metrics.NewNoOpMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router wires the endpoints with middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recovery(s.logger))
	r.Use(requestID)
	r.Use(accessLog(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1/attestations", func(r chi.Router) {
		r.Post("/", s.handleAttest)
		r.Post("/verify", s.handleVerify)
	})
	return r
}

type verifyRequest struct {
	SchemaID string          `json:"schemaId"`
	Account  string          `json:"account"`
	Bundle   json.RawMessage `json:"bundle"`
}

type verifyResponse struct {
	Payload  *attestation.AttestationCallPayload `json:"payload"`
	Calldata string                              `json:"calldata"`
}

type attestRequest struct {
	SchemaID string          `json:"schemaId"`
	Bundle   json.RawMessage `json:"bundle"`
}

type attestResponse struct {
	State       string `json:"state"`
	TxHash      string `json:"txHash"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleVerify runs the verification half of the state machine on a posted
// bundle and returns the payload that would be submitted.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.SchemaID == "" || len(req.Bundle) == 0 {
		writeBadRequest(w, "schemaId and bundle are required")
		return
	}
	if !common.IsHexAddress(req.Account) {
		writeBadRequest(w, "account must be a hex address")
		return
	}

	ctx := r.Context()
	state := orchestrator.VerifyOnly(ctx, launcher.Static(req.Bundle), s.verifier,
		orchestrator.Attempt{SchemaID: req.SchemaID, Account: common.HexToAddress(req.Account)})

	switch st := state.(type) {
	case orchestrator.Verified:
		payload := st.Encode().Payload
		calldata, err := payload.Calldata()
		if err != nil {
			s.logger.Error("pack calldata", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "encode calldata"})
			return
		}
		writeJSON(w, http.StatusOK, verifyResponse{Payload: payload, Calldata: hexutil.Encode(calldata)})
	case orchestrator.Rejected:
		s.metrics.RecordVerificationFailure(ctx, req.SchemaID, string(st.Reason()))
		writeRejection(w, string(st.Phase()), st.Err)
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unexpected state " + string(state.Phase())})
	}
}

// handleAttest verifies a posted bundle and submits it from the server wallet.
func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "submission is not configured"})
		return
	}
	var req attestRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.SchemaID == "" || len(req.Bundle) == 0 {
		writeBadRequest(w, "schemaId and bundle are required")
		return
	}

	o := orchestrator.New(launcher.Static(req.Bundle), s.wallet, s.verifier,
		orchestrator.WithEnvironmentChecker(s.wallet),
		orchestrator.WithLogger(s.logger.With(zap.String("request_id", RequestIDFrom(r.Context())))),
		orchestrator.WithMetrics(s.metrics),
		orchestrator.WithExplorer(s.explorer))
	out := o.Run(r.Context(), orchestrator.Attempt{SchemaID: req.SchemaID, Account: s.wallet.Account()})

	switch st := out.Final.(type) {
	case orchestrator.Confirmed:
		writeJSON(w, http.StatusOK, attestResponse{State: string(st.Phase()), TxHash: st.TxID, ExplorerURL: out.ExplorerURL})
	case orchestrator.Rejected:
		writeRejection(w, string(st.Phase()), st.Err)
	case orchestrator.SubmissionFailed:
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Kind:   attestation.KindSubmission.String(),
			Reason: string(attestation.ReasonSubmissionFailed),
			Error:  st.Err.Error(),
			State:  string(st.Phase()),

			TxHash:      st.TxID,
			ExplorerURL: out.ExplorerURL,
		})
	}
}
