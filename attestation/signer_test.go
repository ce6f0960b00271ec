package attestation

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleSigner(t *testing.T) {
	t.Run("NewRoleSignerWithNilKey", func(t *testing.T) {
		signer, err := NewRoleSigner(nil)
		assert.Error(t, err)
		assert.Nil(t, signer)
		assert.Contains(t, err.Error(), "private key cannot be nil")
	})

	t.Run("NewRoleSignerFromHex", func(t *testing.T) {
		const keyHex = "0x0000000000000000000000000000000000000000000000000000000000000001"
		signer, err := NewRoleSignerFromHex(keyHex)
		require.NoError(t, err)
		// Address of private key 1.
		assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", signer.Address().Hex())

		_, err = NewRoleSignerFromHex("not-hex")
		assert.Error(t, err)
	})

	t.Run("SignMessageEmpty", func(t *testing.T) {
		signer, err := GenerateRoleSigner()
		require.NoError(t, err)

		sig, err := signer.SignMessage(nil)
		assert.Error(t, err)
		assert.Nil(t, sig)
		assert.Contains(t, err.Error(), "message cannot be empty")
	})

	t.Run("SignDigestWrongLength", func(t *testing.T) {
		signer, err := GenerateRoleSigner()
		require.NoError(t, err)

		_, err = signer.SignDigest([]byte{0x01})
		assert.Error(t, err)
	})

	t.Run("EVMRecoveryID", func(t *testing.T) {
		signer, err := GenerateRoleSigner()
		require.NoError(t, err)

		for i := 0; i < 16; i++ {
			sig, err := signer.SignMessage([]byte{byte(i), 0x42})
			require.NoError(t, err)
			require.Len(t, sig, 65, "signature should be 65 bytes [R || S || V]")
			assert.Contains(t, []byte{27, 28}, sig[64])
		}
	})

	t.Run("SignatureRecovers", func(t *testing.T) {
		signer, err := GenerateRoleSigner()
		require.NoError(t, err)

		msg := []byte("test attestation payload")
		sig, err := signer.SignMessage(msg)
		require.NoError(t, err)

		addr, err := ECRecoverer.RecoverAddress(SigningDigest(msg), sig)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), addr)

		// go-ethereum's own recovery agrees once V is compact.
		compact := append([]byte(nil), sig...)
		compact[64] -= 27
		pub, err := crypto.SigToPub(SigningDigest(msg), compact)
		require.NoError(t, err)
		assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
	})

	t.Run("DeterministicSignature", func(t *testing.T) {
		signer, err := GenerateRoleSigner()
		require.NoError(t, err)

		payload := []byte("deterministic test payload")
		sig1, err := signer.SignMessage(payload)
		require.NoError(t, err)
		sig2, err := signer.SignMessage(payload)
		require.NoError(t, err)

		assert.Equal(t, sig1, sig2, "signatures should be deterministic")
	})

	t.Run("ConcurrentSigning", func(t *testing.T) {
		signer, err := GenerateRoleSigner()
		require.NoError(t, err)

		var wg sync.WaitGroup
		numGoroutines := 50
		results := make([][]byte, numGoroutines)
		errs := make([]error, numGoroutines)

		wg.Add(numGoroutines)
		for i := range numGoroutines {
			go func(idx int) {
				defer wg.Done()
				results[idx], errs[idx] = signer.SignMessage([]byte("concurrent test payload"))
			}(i)
		}
		wg.Wait()

		for i := range numGoroutines {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0], results[i], "all concurrent signatures should be identical")
		}
	})
}

func TestCheckSignatureShape(t *testing.T) {
	signer, err := GenerateRoleSigner()
	require.NoError(t, err)
	sig, err := signer.SignMessage([]byte("shape"))
	require.NoError(t, err)

	require.NoError(t, CheckSignatureShape(sig))

	for _, v := range []byte{0, 1, 27, 28} {
		s := append([]byte(nil), sig...)
		s[64] = v
		assert.NoError(t, CheckSignatureShape(s), "v=%d", v)
	}
	for _, v := range []byte{2, 26, 29, 35, 37, 255} {
		s := append([]byte(nil), sig...)
		s[64] = v
		assert.Error(t, CheckSignatureShape(s), "v=%d", v)
	}
	assert.Error(t, CheckSignatureShape(sig[:64]))
	assert.Error(t, CheckSignatureShape(make([]byte, 65)))
}
