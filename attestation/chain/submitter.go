// Package chain commits verified attestation payloads to the attestation
// contract through an Ethereum JSON-RPC endpoint.
package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation"
)

// Backend is the part of an Ethereum client the submitter uses.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", rpcURL)
	}
	return client, nil
}

// Submitter sends attest() transactions signed by one wallet key. It also
// serves as the orchestrator's environment check, since the same wallet and
// network are what the submission depends on.
type Submitter struct {
	backend  Backend
	contract *bind.BoundContract
	address  common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int

	waitMined bool
	gasLimit  uint64
	logger    *zap.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithWaitMined makes Submit block until the transaction is mined and fail
// when the receipt reports a revert.
func WithWaitMined(wait bool) Option {
	return func(s *Submitter) { s.waitMined = wait }
}

// WithGasLimit fixes the gas limit instead of estimating it.
func WithGasLimit(limit uint64) Option {
	return func(s *Submitter) { s.gasLimit = limit }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Submitter) { s.logger = logger.Named("chain") }
}

// NewSubmitter creates a submitter for the contract at address on the chain
// identified by chainID. key may be nil, in which case CheckEnvironment
// reports the wallet as unavailable and Submit fails.
func NewSubmitter(backend Backend, address common.Address, key *ecdsa.PrivateKey, chainID *big.Int, opts ...Option) (*Submitter, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if address == (common.Address{}) {
		return nil, errors.New("contract address is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id must be positive")
	}
	s := &Submitter{
		backend:  backend,
		contract: bind.NewBoundContract(address, attestation.ContractABI, backend, backend, backend),
		address:  address,
		key:      key,
		chainID:  new(big.Int).Set(chainID),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Account returns the wallet address, or the zero address without a key.
func (s *Submitter) Account() common.Address {
	if s.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// CheckEnvironment reports WalletUnavailable when there is no key or the RPC
// endpoint cannot be reached, and WrongNetwork when the endpoint serves a
// different chain than configured.
func (s *Submitter) CheckEnvironment(ctx context.Context) error {
	if s.key == nil {
		return attestation.NewError(attestation.ReasonWalletUnavailable, "no wallet key configured")
	}
	id, err := s.backend.ChainID(ctx)
	if err != nil {
		return attestation.WrapError(attestation.ReasonWalletUnavailable, err, "query chain id")
	}
	if id.Cmp(s.chainID) != 0 {
		return attestation.NewError(attestation.ReasonWrongNetwork, "connected to chain %s, expected %s", id, s.chainID)
	}
	return nil
}

// TxError reports a transaction that was broadcast but not confirmed, either
// because waiting for it failed or because its receipt reports a revert.
type TxError struct {
	TxID     string
	Reverted bool
	Err      error
}

func (e *TxError) Error() string {
	if e.Reverted {
		return "transaction " + e.TxID + " reverted: " + e.Err.Error()
	}
	return "wait for " + e.TxID + ": " + e.Err.Error()
}

func (e *TxError) Unwrap() error { return e.Err }

// Submit sends attest(payload) and returns the transaction hash. Once the
// transaction is broadcast its hash is returned even when Submit fails, and
// the error is a *TxError.
func (s *Submitter) Submit(ctx context.Context, payload *attestation.AttestationCallPayload) (string, error) {
	if s.key == nil {
		return "", errors.New("no wallet key configured")
	}
	calldata, err := payload.Calldata()
	if err != nil {
		return "", err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return "", errors.Wrap(err, "create transactor")
	}
	opts.Context = ctx
	opts.GasLimit = s.gasLimit

	tx, err := s.contract.RawTransact(opts, calldata)
	if err != nil {
		return "", errors.Wrap(err, "send attest transaction")
	}
	txID := tx.Hash().Hex()
	s.logger.Info("attest transaction sent",
		zap.String("tx_hash", txID),
		zap.String("contract", s.address.Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	if !s.waitMined {
		return txID, nil
	}
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return txID, &TxError{TxID: txID, Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return txID, &TxError{TxID: txID, Reverted: true, Err: errors.Errorf("in block %s", receipt.BlockNumber)}
	}
	s.logger.Debug("attest transaction mined",
		zap.String("tx_hash", txID),
		zap.Uint64("gas_used", receipt.GasUsed))
	return txID, nil
}
