package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation/chain"
	"github.com/trufnetwork/zkattest/attestation/config"
)

// newSubmitter dials the configured RPC endpoint and builds the wallet-backed
// submitter. The returned close function releases the connection.
func newSubmitter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*chain.Submitter, func(), error) {
	key, err := cfg.Wallet()
	if err != nil {
		return nil, nil, err
	}
	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	sub, err := chain.NewSubmitter(client, cfg.Contract(), key, cfg.ChainIDBig(),
		chain.WithWaitMined(cfg.WaitMined),
		chain.WithGasLimit(cfg.GasLimit),
		chain.WithLogger(logger))
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return sub, client.Close, nil
}
