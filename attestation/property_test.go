package attestation

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func identifierGen() gopter.Gen {
	return gen.RegexMatch("[a-z0-9]{1,32}")
}

func hashGen() gopter.Gen {
	return gen.SliceOfN(32, gen.UInt8()).Map(func(b []byte) common.Hash {
		return common.BytesToHash(b)
	})
}

// TestSchemaBindingProperty verifies that any schema other than the bundle's is rejected.
// Property: bundle.SchemaID != requested => BindSchema fails with SchemaMismatch
func TestSchemaBindingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("mismatched schema is always rejected", prop.ForAll(
		func(bundleSchema, requested string) bool {
			b := &ResultBundle{SchemaID: bundleSchema}
			err := BindSchema(b, requested)
			if bundleSchema == requested {
				return err == nil
			}
			reason, _ := ReasonOf(err)
			return reason == ReasonSchemaMismatch
		},
		identifierGen(),
		identifierGen(),
	))

	properties.TestingRun(t)
}

// TestVerificationProperties exercises the signature checks over random bundle contents.
func TestVerificationProperties(t *testing.T) {
	f := newFixture(t)
	rogue, err := GenerateRoleSigner()
	if err != nil {
		t.Fatal(err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	build := func(taskID, schemaID string, uHash, pfHash common.Hash, allocator *RoleSigner) (*ResultBundle, bool) {
		b := &ResultBundle{TaskID: taskID, SchemaID: schemaID, UHash: uHash, PublicFieldsHash: pfHash}
		if err := SignBundle(b, allocator, f.validator); err != nil {
			return nil, false
		}
		return b, true
	}

	properties.Property("trusted allocator and self-consistent validator verify", prop.ForAll(
		func(taskID, schemaID string, uHash, pfHash common.Hash) bool {
			b, ok := build(taskID, schemaID, uHash, pfHash, f.allocator)
			return ok && BindSchema(b, schemaID) == nil && f.verifier().Verify(b) == nil
		},
		identifierGen(), identifierGen(), hashGen(), hashGen(),
	))

	properties.Property("untrusted allocator fails regardless of validator signature", prop.ForAll(
		func(taskID, schemaID string, uHash, pfHash common.Hash, corruptValidator bool) bool {
			b, ok := build(taskID, schemaID, uHash, pfHash, rogue)
			if !ok {
				return false
			}
			if corruptValidator {
				other, err := GenerateRoleSigner()
				if err != nil {
					return false
				}
				msg, _ := ValidatorMessage(b)
				if b.ValidatorSignature, err = other.SignMessage(msg); err != nil {
					return false
				}
			}
			reason, _ := ReasonOf(f.verifier().Verify(b))
			return reason == ReasonUntrustedAllocator
		},
		identifierGen(), identifierGen(), hashGen(), hashGen(), gen.Bool(),
	))

	properties.Property("validator signer differing from validatorAddress is a mismatch", prop.ForAll(
		func(taskID, schemaID string, uHash, pfHash common.Hash) bool {
			b, ok := build(taskID, schemaID, uHash, pfHash, f.allocator)
			if !ok {
				return false
			}
			b.ValidatorAddress = rogue.Address()
			// Re-sign the allocator message so the allocator step still passes.
			msg, _ := AllocatorMessage(b)
			var err error
			if b.AllocatorSignature, err = f.allocator.SignMessage(msg); err != nil {
				return false
			}
			reason, _ := ReasonOf(f.verifier().Verify(b))
			return reason == ReasonValidatorMismatch
		},
		identifierGen(), identifierGen(), hashGen(), hashGen(),
	))

	properties.Property("encoding a verified bundle is deterministic and lossless", prop.ForAll(
		func(taskID, schemaID string, uHash, pfHash common.Hash) bool {
			b, ok := build(taskID, schemaID, uHash, pfHash, f.allocator)
			if !ok || f.verifier().Verify(b) != nil {
				return false
			}
			recipient := f.allocator.Address()
			first, err1 := Encode(b, recipient).Calldata()
			second, err2 := Encode(b, recipient).Calldata()
			if err1 != nil || err2 != nil || !bytes.Equal(first, second) {
				return false
			}
			decoded, err := UnpackCallPayload(first)
			if err != nil {
				return false
			}
			return common.Hash(decoded.UHash) == b.UHash &&
				common.Hash(decoded.PublicFieldsHash) == b.PublicFieldsHash &&
				decoded.TaskId == ToBytes32(taskID) &&
				decoded.SchemaId == ToBytes32(schemaID) &&
				decoded.Validator == b.ValidatorAddress &&
				bytes.Equal(decoded.AllocatorSignature, b.AllocatorSignature) &&
				bytes.Equal(decoded.ValidatorSignature, b.ValidatorSignature)
		},
		identifierGen(), identifierGen(), hashGen(), hashGen(),
	))

	properties.TestingRun(t)
}
