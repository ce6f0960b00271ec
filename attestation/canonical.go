package attestation

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// The attestor signs two ABI-encoded messages per task. Both are hashed with
// keccak256 and then signed as EIP-191 personal messages.
//
// Allocator message:
//
//	abi.encode(bytes32 taskId, bytes32 schemaId, address validator)
//
// Validator message:
//
//	abi.encode(bytes32 taskId, bytes32 schemaId, bytes32 uHash, bytes32 publicFieldsHash)
//	abi.encode(bytes32 taskId, bytes32 schemaId, bytes32 uHash, bytes32 publicFieldsHash, address recipient)
//
// The second form is used when the attestor bound the proof to a recipient.
var (
	bytes32Type = mustType("bytes32")
	addressType = mustType("address")

	allocatorArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: addressType},
	}
	validatorArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: bytes32Type},
	}
	validatorRecipientArgs = append(append(abi.Arguments{}, validatorArgs...), abi.Argument{Type: addressType})
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(errors.Wrapf(err, "abi type %s", t))
	}
	return typ
}

// ToBytes32 converts attestor text identifiers into their bytes32 form: the raw
// UTF-8 bytes, right-padded with zeros. Callers must reject identifiers longer
// than IdentifierSize beforehand; ParseResultBundle does.
func ToBytes32(s string) [IdentifierSize]byte {
	var out [IdentifierSize]byte
	copy(out[:], []byte(s))
	return out
}

// AllocatorMessage returns the ABI-encoded bytes the allocator signs.
func AllocatorMessage(b *ResultBundle) ([]byte, error) {
	msg, err := allocatorArgs.Pack(ToBytes32(b.TaskID), ToBytes32(b.SchemaID), b.ValidatorAddress)
	if err != nil {
		return nil, errors.Wrap(err, "encode allocator message")
	}
	return msg, nil
}

// ValidatorMessage returns the ABI-encoded bytes the validator signs.
func ValidatorMessage(b *ResultBundle) ([]byte, error) {
	var (
		msg []byte
		err error
	)
	if b.Recipient != nil {
		msg, err = validatorRecipientArgs.Pack(ToBytes32(b.TaskID), ToBytes32(b.SchemaID),
			[32]byte(b.UHash), [32]byte(b.PublicFieldsHash), *b.Recipient)
	} else {
		msg, err = validatorArgs.Pack(ToBytes32(b.TaskID), ToBytes32(b.SchemaID),
			[32]byte(b.UHash), [32]byte(b.PublicFieldsHash))
	}
	if err != nil {
		return nil, errors.Wrap(err, "encode validator message")
	}
	return msg, nil
}

// SigningDigest is the 32-byte digest a role signs for msg:
// keccak256("\x19Ethereum Signed Message:\n32" || keccak256(msg)).
func SigningDigest(msg []byte) []byte {
	return accounts.TextHash(crypto.Keccak256(msg))
}

// AllocatorDigest is SigningDigest(AllocatorMessage(b)).
func AllocatorDigest(b *ResultBundle) ([]byte, error) {
	msg, err := AllocatorMessage(b)
	if err != nil {
		return nil, err
	}
	return SigningDigest(msg), nil
}

// ValidatorDigest is SigningDigest(ValidatorMessage(b)).
func ValidatorDigest(b *ResultBundle) ([]byte, error) {
	msg, err := ValidatorMessage(b)
	if err != nil {
		return nil, err
	}
	return SigningDigest(msg), nil
}

// addressFromHex is a convenience for fixtures and configuration.
func addressFromHex(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
