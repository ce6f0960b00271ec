package attestation

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignatureLength is the size of an EVM signature [R || S || V].
const SignatureLength = crypto.SignatureLength

// Recoverer recovers the address that produced sig over a 32-byte digest.
// Signatures reaching a Recoverer have already passed CheckSignatureShape.
type Recoverer interface {
	RecoverAddress(digest, sig []byte) (common.Address, error)
}

// RecovererFunc adapts a function to the Recoverer interface.
type RecovererFunc func(digest, sig []byte) (common.Address, error)

func (f RecovererFunc) RecoverAddress(digest, sig []byte) (common.Address, error) {
	return f(digest, sig)
}

// ECRecoverer is the secp256k1 Recoverer.
var ECRecoverer Recoverer = RecovererFunc(recoverAddress)

func recoverAddress(digest, sig []byte) (common.Address, error) {
	if len(digest) != crypto.DigestLength {
		return common.Address{}, errors.Errorf("digest must be %d bytes, got %d", crypto.DigestLength, len(digest))
	}
	normSig := bytes.Clone(sig)
	recoveryID, err := toCompactRecoveryID(normSig[crypto.RecoveryIDOffset])
	if err != nil {
		return common.Address{}, err
	}
	normSig[crypto.RecoveryIDOffset] = recoveryID

	pub, err := crypto.SigToPub(digest, normSig)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recover public key from signature")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// CheckSignatureShape rejects anything that is not a 65-byte [R || S || V]
// signature with an in-range R, S and a recovery id of 0, 1, 27 or 28.
// It performs no elliptic-curve work.
func CheckSignatureShape(sig []byte) error {
	if len(sig) != SignatureLength {
		return errors.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	v, err := toCompactRecoveryID(sig[crypto.RecoveryIDOffset])
	if err != nil {
		return err
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return errors.New("signature r/s values out of range")
	}
	return nil
}

// toCompactRecoveryID normalises V to the {0,1} form go-ethereum expects.
func toCompactRecoveryID(v byte) (byte, error) {
	switch v {
	case 0, 1:
		return v, nil
	case 27, 28:
		return v - 27, nil
	default:
		return 0, errors.Errorf("invalid recovery id %d", v)
	}
}
