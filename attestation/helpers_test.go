package attestation

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSchemaID = "b7724d4fce7d480ca9658730fdc4b8cf"

type fixture struct {
	allocator *RoleSigner
	validator *RoleSigner
	policy    *TrustPolicy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	allocator, err := GenerateRoleSigner()
	require.NoError(t, err)
	validator, err := GenerateRoleSigner()
	require.NoError(t, err)
	policy, err := NewTrustPolicy(allocator.Address())
	require.NoError(t, err)

	return &fixture{allocator: allocator, validator: validator, policy: policy}
}

func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// signedBundle returns a bundle for schemaID signed by the fixture's roles.
func (f *fixture) signedBundle(t *testing.T, schemaID string) *ResultBundle {
	t.Helper()

	b := &ResultBundle{
		TaskID:           newTaskID(),
		SchemaID:         schemaID,
		UHash:            common.HexToHash("0x6f1c5c3d8c1e0b6b0f3a5d1e2c4b6a8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7"),
		PublicFieldsHash: common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
	}
	require.NoError(t, SignBundle(b, f.allocator, f.validator))
	return b
}

func (f *fixture) verifier() *SignatureVerifier {
	return NewSignatureVerifier(f.policy, nil)
}

// countingRecoverer wraps ECRecoverer and counts recovery calls.
type countingRecoverer struct {
	calls int
}

func (c *countingRecoverer) RecoverAddress(digest, sig []byte) (common.Address, error) {
	c.calls++
	return ECRecoverer.RecoverAddress(digest, sig)
}
