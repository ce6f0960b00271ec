package attestation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// IdentifierSize is the on-chain width of taskId and schemaId (bytes32).
const IdentifierSize = 32

//go:embed bundle.schema.json
var bundleSchemaJSON string

const bundleSchemaURL = "https://zkattest.truf.network/schemas/result-bundle.schema.json"

var bundleSchema = compileBundleSchema()

func compileBundleSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(bundleSchemaURL, bytes.NewReader([]byte(bundleSchemaJSON))); err != nil {
		panic(errors.Wrap(err, "load result bundle schema"))
	}
	return c.MustCompile(bundleSchemaURL)
}

// ResultBundle is the signed attestation returned by the attestor for one
// attempt. Values are only ever produced by ParseResultBundle (or by tests
// building fixtures), so every field has already passed the structural checks.
type ResultBundle struct {
	TaskID             string
	SchemaID           string
	UHash              common.Hash
	PublicFieldsHash   common.Hash
	ValidatorAddress   common.Address
	AllocatorSignature []byte
	ValidatorSignature []byte

	// AllocatorAddress is the allocator the attestor claims signed the task.
	// It is informational: trust comes from the configured allow-list.
	AllocatorAddress *common.Address
	// Recipient is the account the validator bound the proof to, when the
	// attestor includes it in the signed message.
	Recipient *common.Address
}

type rawBundle struct {
	TaskID             string `json:"taskId"`
	SchemaID           string `json:"schemaId"`
	UHash              string `json:"uHash"`
	PublicFieldsHash   string `json:"publicFieldsHash"`
	ValidatorAddress   string `json:"validatorAddress"`
	AllocatorAddress   string `json:"allocatorAddress,omitempty"`
	Recipient          string `json:"recipient,omitempty"`
	AllocatorSignature string `json:"allocatorSignature"`
	ValidatorSignature string `json:"validatorSignature"`
}

// ParseResultBundle validates untrusted attestor output and decodes it into a
// ResultBundle. Every failure is reported as ReasonMalformedBundle.
func ParseResultBundle(data []byte) (*ResultBundle, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewError(ReasonMalformedBundle, "empty result bundle")
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, WrapError(ReasonMalformedBundle, err, "decode result bundle")
	}
	if err := bundleSchema.Validate(doc); err != nil {
		return nil, WrapError(ReasonMalformedBundle, err, "result bundle does not match schema")
	}

	var raw rawBundle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, WrapError(ReasonMalformedBundle, err, "decode result bundle fields")
	}
	return raw.toBundle()
}

func (r *rawBundle) toBundle() (*ResultBundle, error) {
	if err := checkIdentifier("taskId", r.TaskID); err != nil {
		return nil, err
	}
	if err := checkIdentifier("schemaId", r.SchemaID); err != nil {
		return nil, err
	}

	allocatorSig, err := hexutil.Decode(r.AllocatorSignature)
	if err != nil {
		return nil, WrapError(ReasonMalformedBundle, err, "decode allocatorSignature")
	}
	validatorSig, err := hexutil.Decode(r.ValidatorSignature)
	if err != nil {
		return nil, WrapError(ReasonMalformedBundle, err, "decode validatorSignature")
	}

	b := &ResultBundle{
		TaskID:             r.TaskID,
		SchemaID:           r.SchemaID,
		UHash:              common.HexToHash(r.UHash),
		PublicFieldsHash:   common.HexToHash(r.PublicFieldsHash),
		ValidatorAddress:   common.HexToAddress(r.ValidatorAddress),
		AllocatorSignature: allocatorSig,
		ValidatorSignature: validatorSig,
		AllocatorAddress:   optionalAddress(r.AllocatorAddress),
		Recipient:          optionalAddress(r.Recipient),
	}
	if b.UHash == (common.Hash{}) {
		return nil, NewError(ReasonMalformedBundle, "uHash is zero")
	}
	if b.ValidatorAddress == (common.Address{}) {
		return nil, NewError(ReasonMalformedBundle, "validatorAddress is zero")
	}
	return b, nil
}

func checkIdentifier(field, v string) error {
	switch {
	case v == "":
		return NewError(ReasonMalformedBundle, "%s is empty", field)
	case !utf8.ValidString(v):
		return NewError(ReasonMalformedBundle, "%s is not valid UTF-8", field)
	case len(v) > IdentifierSize:
		return NewError(ReasonMalformedBundle, "%s is %d bytes, exceeds %d", field, len(v), IdentifierSize)
	}
	return nil
}

func optionalAddress(v string) *common.Address {
	if v == "" {
		return nil
	}
	addr := common.HexToAddress(v)
	return &addr
}

// MarshalJSON renders the bundle in the attestor's wire shape.
func (b *ResultBundle) MarshalJSON() ([]byte, error) {
	raw := rawBundle{
		TaskID:             b.TaskID,
		SchemaID:           b.SchemaID,
		UHash:              b.UHash.Hex(),
		PublicFieldsHash:   b.PublicFieldsHash.Hex(),
		ValidatorAddress:   b.ValidatorAddress.Hex(),
		AllocatorSignature: hexutil.Encode(b.AllocatorSignature),
		ValidatorSignature: hexutil.Encode(b.ValidatorSignature),
	}
	if b.AllocatorAddress != nil {
		raw.AllocatorAddress = b.AllocatorAddress.Hex()
	}
	if b.Recipient != nil {
		raw.Recipient = b.Recipient.Hex()
	}
	return json.Marshal(raw)
}
