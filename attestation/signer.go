package attestation

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// RoleSigner produces EVM-compatible signatures for one attestor role
// (allocator or validator). The verifier never needs one; it exists for the
// local test attestor and fixtures.
type RoleSigner struct {
	privateKey *ecdsa.PrivateKey
}

// NewRoleSigner wraps a secp256k1 private key.
func NewRoleSigner(privateKey *ecdsa.PrivateKey) (*RoleSigner, error) {
	if privateKey == nil {
		return nil, errors.New("private key cannot be nil")
	}
	return &RoleSigner{privateKey: privateKey}, nil
}

// NewRoleSignerFromHex parses a hex-encoded secp256k1 private key.
func NewRoleSignerFromHex(keyHex string) (*RoleSigner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(keyHex))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	return NewRoleSigner(key)
}

// GenerateRoleSigner creates a signer with a fresh random key.
func GenerateRoleSigner() (*RoleSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key")
	}
	return NewRoleSigner(key)
}

// SignDigest signs a 32-byte digest and returns a 65-byte [R || S || V]
// signature with V in {27,28}.
func (s *RoleSigner) SignDigest(digest []byte) ([]byte, error) {
	if len(digest) != crypto.DigestLength {
		return nil, errors.Errorf("digest must be %d bytes, got %d", crypto.DigestLength, len(digest))
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign digest")
	}

	// crypto.Sign returns V in {0,1}; wallets and the attestor use {27,28}.
	signature[crypto.RecoveryIDOffset] = signature[crypto.RecoveryIDOffset]&1 + 27
	return signature, nil
}

// SignMessage signs msg the way the attestor does: EIP-191 over keccak256(msg).
func (s *RoleSigner) SignMessage(msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, errors.New("message cannot be empty")
	}
	return s.SignDigest(SigningDigest(msg))
}

// Address returns the Ethereum address of the signer.
func (s *RoleSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey)
}

// SignBundle fills in both signatures of b. The allocator signs first because
// its message covers the validator address the validator then signs under.
func SignBundle(b *ResultBundle, allocator, validator *RoleSigner) error {
	b.ValidatorAddress = validator.Address()

	allocatorMsg, err := AllocatorMessage(b)
	if err != nil {
		return err
	}
	if b.AllocatorSignature, err = allocator.SignMessage(allocatorMsg); err != nil {
		return errors.Wrap(err, "allocator sign")
	}

	validatorMsg, err := ValidatorMessage(b)
	if err != nil {
		return err
	}
	if b.ValidatorSignature, err = validator.SignMessage(validatorMsg); err != nil {
		return errors.Wrap(err, "validator sign")
	}
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
