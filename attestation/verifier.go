package attestation

import (
	"github.com/ethereum/go-ethereum/common"
)

// BindSchema fails with ReasonSchemaMismatch unless the bundle was produced
// for exactly the schema the caller requested. Schema identifiers are opaque
// strings and are compared byte for byte.
func BindSchema(b *ResultBundle, requestedSchemaID string) error {
	if b.SchemaID != requestedSchemaID {
		return NewError(ReasonSchemaMismatch, "bundle schema %q, requested %q", b.SchemaID, requestedSchemaID)
	}
	return nil
}

// SignatureVerifier checks the allocator and validator signatures of a bundle.
// It holds only read-only state and may be shared across attempts.
type SignatureVerifier struct {
	policy    *TrustPolicy
	recoverer Recoverer
}

// NewSignatureVerifier returns a verifier for policy. A nil recoverer selects
// ECRecoverer.
func NewSignatureVerifier(policy *TrustPolicy, recoverer Recoverer) *SignatureVerifier {
	if recoverer == nil {
		recoverer = ECRecoverer
	}
	return &SignatureVerifier{policy: policy, recoverer: recoverer}
}

type verifyStep func(*ResultBundle) error

// Verify runs the structural check, then the allocator step, then the
// validator step, stopping at the first failure.
func (v *SignatureVerifier) Verify(b *ResultBundle) error {
	for _, step := range []verifyStep{
		checkSignatures,
		v.verifyAllocator,
		v.verifyValidator,
	} {
		if err := step(b); err != nil {
			return err
		}
	}
	return nil
}

func checkSignatures(b *ResultBundle) error {
	if err := CheckSignatureShape(b.AllocatorSignature); err != nil {
		return WrapError(ReasonMalformedSignature, err, "allocatorSignature")
	}
	if err := CheckSignatureShape(b.ValidatorSignature); err != nil {
		return WrapError(ReasonMalformedSignature, err, "validatorSignature")
	}
	return nil
}

func (v *SignatureVerifier) verifyAllocator(b *ResultBundle) error {
	digest, err := AllocatorDigest(b)
	if err != nil {
		return WrapError(ReasonMalformedBundle, err, "allocator message")
	}
	signer, err := v.recoverer.RecoverAddress(digest, b.AllocatorSignature)
	if err != nil {
		return WrapError(ReasonMalformedSignature, err, "allocatorSignature")
	}
	if !v.policy.TrustsAllocator(signer) {
		return NewError(ReasonUntrustedAllocator, "allocator signer %s is not trusted", signer.Hex())
	}
	if b.AllocatorAddress != nil && *b.AllocatorAddress != signer {
		return NewError(ReasonUntrustedAllocator, "allocator signer %s differs from declared %s",
			signer.Hex(), b.AllocatorAddress.Hex())
	}
	return nil
}

func (v *SignatureVerifier) verifyValidator(b *ResultBundle) error {
	digest, err := ValidatorDigest(b)
	if err != nil {
		return WrapError(ReasonMalformedBundle, err, "validator message")
	}
	signer, err := v.recoverer.RecoverAddress(digest, b.ValidatorSignature)
	if err != nil {
		return WrapError(ReasonMalformedSignature, err, "validatorSignature")
	}
	if signer != b.ValidatorAddress {
		return NewError(ReasonValidatorMismatch, "validator signer %s differs from declared %s",
			signer.Hex(), b.ValidatorAddress.Hex())
	}
	return nil
}

// CheckRecipient fails with ReasonRecipientMismatch when the bundle was bound
// to an account other than the one running the attempt.
func CheckRecipient(b *ResultBundle, account common.Address) error {
	if b.Recipient != nil && *b.Recipient != account {
		return NewError(ReasonRecipientMismatch, "bundle recipient %s, account %s", b.Recipient.Hex(), account.Hex())
	}
	return nil
}
