package attestation

import (
	"bytes"
	_ "embed"
	"encoding/json"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// AttestMethod is the contract entry point that commits an attestation.
const AttestMethod = "attest"

//go:embed attestation_abi.json
var contractABIJSON string

// ContractABI is the parsed ABI of the attestation contract.
var ContractABI = mustParseABI(contractABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader([]byte(s)))
	if err != nil {
		panic(errors.Wrap(err, "parse attestation contract abi"))
	}
	return parsed
}

// AttestationCallPayload is the argument of attest(). Field order and names
// follow the contract tuple; the ABI packer maps components by name.
type AttestationCallPayload struct {
	TaskId             [IdentifierSize]byte
	SchemaId           [IdentifierSize]byte
	UHash              [32]byte
	Recipient          common.Address
	PublicFieldsHash   [32]byte
	Validator          common.Address
	AllocatorSignature []byte
	ValidatorSignature []byte
}

// Encode maps a verified bundle to the on-chain call payload. It does no
// validation: callers must run BindSchema and SignatureVerifier.Verify first.
func Encode(b *ResultBundle, recipient common.Address) *AttestationCallPayload {
	return &AttestationCallPayload{
		TaskId:             ToBytes32(b.TaskID),
		SchemaId:           ToBytes32(b.SchemaID),
		UHash:              b.UHash,
		Recipient:          recipient,
		PublicFieldsHash:   b.PublicFieldsHash,
		Validator:          b.ValidatorAddress,
		AllocatorSignature: bytes.Clone(b.AllocatorSignature),
		ValidatorSignature: bytes.Clone(b.ValidatorSignature),
	}
}

// Calldata returns the ABI-encoded attest() call for p.
func (p *AttestationCallPayload) Calldata() ([]byte, error) {
	data, err := ContractABI.Pack(AttestMethod, *p)
	if err != nil {
		return nil, errors.Wrap(err, "pack attest call")
	}
	return data, nil
}

// UnpackCallPayload decodes attest() calldata produced by Calldata.
func UnpackCallPayload(calldata []byte) (*AttestationCallPayload, error) {
	method, ok := ContractABI.Methods[AttestMethod]
	if !ok {
		return nil, errors.New("attest method missing from contract abi")
	}
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], method.ID) {
		return nil, errors.New("calldata does not target attest")
	}
	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, errors.Wrap(err, "unpack attest call")
	}
	if len(values) != 1 {
		return nil, errors.Errorf("attest expects 1 argument, got %d", len(values))
	}
	payload := new(AttestationCallPayload)
	converted, ok := abi.ConvertType(values[0], payload).(*AttestationCallPayload)
	if !ok {
		return nil, errors.New("unexpected attest argument type")
	}
	return converted, nil
}

type payloadJSON struct {
	TaskID             hexutil.Bytes  `json:"taskId"`
	SchemaID           hexutil.Bytes  `json:"schemaId"`
	UHash              common.Hash    `json:"uHash"`
	Recipient          common.Address `json:"recipient"`
	PublicFieldsHash   common.Hash    `json:"publicFieldsHash"`
	Validator          common.Address `json:"validator"`
	AllocatorSignature hexutil.Bytes  `json:"allocatorSignature"`
	ValidatorSignature hexutil.Bytes  `json:"validatorSignature"`
}

// MarshalJSON renders the payload with hex values, matching the parameter
// object a JSON-RPC client would pass to attest().
func (p *AttestationCallPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(payloadJSON{
		TaskID:             p.TaskId[:],
		SchemaID:           p.SchemaId[:],
		UHash:              p.UHash,
		Recipient:          p.Recipient,
		PublicFieldsHash:   p.PublicFieldsHash,
		Validator:          p.Validator,
		AllocatorSignature: p.AllocatorSignature,
		ValidatorSignature: p.ValidatorSignature,
	})
}
