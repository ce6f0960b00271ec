// Package attestortest provides a local attestor that issues result bundles
// signed with throwaway allocator and validator keys.
package attestortest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trufnetwork/zkattest/attestation"
)

// CodePredicateNotSatisfied mirrors the code the real attestor reports when
// the account does not meet a schema's requirements.
const CodePredicateNotSatisfied = 110001

// PredicateError is the attestor's JSON error body.
type PredicateError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *PredicateError) Error() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// Attestor issues bundles for any schema. Schemas listed with Deny report
// the predicate as unsatisfied instead.
type Attestor struct {
	Allocator *attestation.RoleSigner
	Validator *attestation.RoleSigner

	// BindRecipient makes the validator sign over the requesting account.
	BindRecipient bool
	// DeclareAllocator includes allocatorAddress in issued bundles.
	DeclareAllocator bool

	mu     sync.RWMutex
	denied map[string]bool
}

// New creates an attestor with fresh keys.
func New() (*Attestor, error) {
	allocator, err := attestation.GenerateRoleSigner()
	if err != nil {
		return nil, errors.Wrap(err, "allocator key")
	}
	validator, err := attestation.GenerateRoleSigner()
	if err != nil {
		return nil, errors.Wrap(err, "validator key")
	}
	return &Attestor{Allocator: allocator, Validator: validator, denied: map[string]bool{}}, nil
}

// NewFromHex creates an attestor from hex-encoded allocator and validator
// keys, so its addresses survive restarts. An empty key is generated.
func NewFromHex(allocatorKey, validatorKey string) (*Attestor, error) {
	a, err := New()
	if err != nil {
		return nil, err
	}
	if allocatorKey != "" {
		if a.Allocator, err = attestation.NewRoleSignerFromHex(allocatorKey); err != nil {
			return nil, errors.Wrap(err, "allocator key")
		}
	}
	if validatorKey != "" {
		if a.Validator, err = attestation.NewRoleSignerFromHex(validatorKey); err != nil {
			return nil, errors.Wrap(err, "validator key")
		}
	}
	return a, nil
}

// Policy returns a trust policy that trusts this attestor's allocator.
func (a *Attestor) Policy() *attestation.TrustPolicy {
	p, err := attestation.NewTrustPolicy(a.Allocator.Address())
	if err != nil {
		// The allocator address of a generated key is never zero.
		panic(err)
	}
	return p
}

// Deny marks schemaID as unsatisfied for every account.
func (a *Attestor) Deny(schemaID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.denied == nil {
		a.denied = map[string]bool{}
	}
	a.denied[schemaID] = true
}

func (a *Attestor) isDenied(schemaID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.denied[schemaID]
}

// Issue builds and signs a bundle proving schemaID for account.
func (a *Attestor) Issue(schemaID string, account common.Address) (*attestation.ResultBundle, error) {
	if a.isDenied(schemaID) {
		return nil, &PredicateError{Code: CodePredicateNotSatisfied, Message: "the account does not meet the schema requirements"}
	}

	b := &attestation.ResultBundle{
		TaskID:           strings.ReplaceAll(uuid.NewString(), "-", ""),
		SchemaID:         schemaID,
		UHash:            crypto.Keccak256Hash(account.Bytes(), []byte(schemaID)),
		PublicFieldsHash: crypto.Keccak256Hash([]byte(schemaID)),
	}
	if a.BindRecipient {
		recipient := account
		b.Recipient = &recipient
	}
	if a.DeclareAllocator {
		allocator := a.Allocator.Address()
		b.AllocatorAddress = &allocator
	}
	if err := attestation.SignBundle(b, a.Allocator, a.Validator); err != nil {
		return nil, err
	}
	return b, nil
}

// Launch implements the orchestrator's launcher contract in-process.
func (a *Attestor) Launch(ctx context.Context, schemaID string, account common.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := a.Issue(schemaID, account)
	if err != nil {
		return nil, err
	}
	return json.Marshal(b)
}
