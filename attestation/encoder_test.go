package attestation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	f := newFixture(t)
	b := f.signedBundle(t, testSchemaID)
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	p := Encode(b, recipient)

	// taskId and schemaId are the raw UTF-8 bytes, right-padded.
	assert.Equal(t, []byte(b.TaskID), p.TaskId[:len(b.TaskID)])
	assert.Equal(t, []byte(testSchemaID), p.SchemaId[:])
	assert.Equal(t, [32]byte(b.UHash), p.UHash)
	assert.Equal(t, [32]byte(b.PublicFieldsHash), p.PublicFieldsHash)
	assert.Equal(t, recipient, p.Recipient)
	assert.Equal(t, b.ValidatorAddress, p.Validator)
	assert.Equal(t, b.AllocatorSignature, p.AllocatorSignature)
	assert.Equal(t, b.ValidatorSignature, p.ValidatorSignature)

	// The payload owns its signature bytes.
	p.AllocatorSignature[0] ^= 0xff
	assert.NotEqual(t, b.AllocatorSignature[0], p.AllocatorSignature[0])
}

func TestEncode_ShortIdentifierPadding(t *testing.T) {
	b := &ResultBundle{TaskID: "task-1", SchemaID: "s"}
	p := Encode(b, common.Address{})

	expected := [IdentifierSize]byte{'t', 'a', 's', 'k', '-', '1'}
	assert.Equal(t, expected, p.TaskId)
	assert.Equal(t, [IdentifierSize]byte{'s'}, p.SchemaId)
}

func TestCalldata_RoundTrip(t *testing.T) {
	f := newFixture(t)
	b := f.signedBundle(t, testSchemaID)
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	p := Encode(b, recipient)

	data, err := p.Calldata()
	require.NoError(t, err)
	assert.Equal(t, ContractABI.Methods[AttestMethod].ID, data[:4])

	again, err := Encode(b, recipient).Calldata()
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")

	decoded, err := UnpackCallPayload(data)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestUnpackCallPayload_Errors(t *testing.T) {
	_, err := UnpackCallPayload(nil)
	assert.Error(t, err)

	_, err = UnpackCallPayload([]byte{0xde, 0xad, 0xbe, 0xef, 0x00})
	assert.ErrorContains(t, err, "does not target attest")

	id := ContractABI.Methods[AttestMethod].ID
	_, err = UnpackCallPayload(append(append([]byte{}, id...), 0x01, 0x02))
	assert.ErrorContains(t, err, "unpack attest call")
}

func TestPayloadJSON(t *testing.T) {
	p := Encode(&ResultBundle{
		TaskID:             "t",
		SchemaID:           "s",
		UHash:              common.HexToHash("0x01"),
		PublicFieldsHash:   common.HexToHash("0x02"),
		ValidatorAddress:   common.HexToAddress("0x03"),
		AllocatorSignature: []byte{0xaa},
		ValidatorSignature: []byte{0xbb},
	}, common.HexToAddress("0x04"))

	data, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"taskId": "0x7400000000000000000000000000000000000000000000000000000000000000",
		"schemaId": "0x7300000000000000000000000000000000000000000000000000000000000000",
		"uHash": "0x0000000000000000000000000000000000000000000000000000000000000001",
		"recipient": "0x0000000000000000000000000000000000000004",
		"publicFieldsHash": "0x0000000000000000000000000000000000000000000000000000000000000002",
		"validator": "0x0000000000000000000000000000000000000003",
		"allocatorSignature": "0xaa",
		"validatorSignature": "0xbb"
	}`, string(data))
}
