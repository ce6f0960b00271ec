// Package app assembles the zkattest command tree.
package app

import (
	"github.com/spf13/cobra"

	"github.com/trufnetwork/zkattest/attestation/config"
	"github.com/trufnetwork/zkattest/cmd/version"
)

type rootFlags struct {
	rpcURL      string
	chainID     int64
	contract    string
	attestorURL string
	appID       string
	allocators  []string
	metrics     string
}

// RootCmd creates the root command with every subcommand attached.
func RootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *rootFlags) {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "zkattest",
		Short:         "Verify attestor result bundles and commit them on chain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.rpcURL, "rpc-url", "", "chain JSON-RPC endpoint (env ZKATTEST_RPC_URL)")
	pf.Int64Var(&flags.chainID, "chain-id", 0, "expected chain id (env ZKATTEST_CHAIN_ID)")
	pf.StringVar(&flags.contract, "contract", "", "attestation contract address (env ZKATTEST_CONTRACT_ADDRESS)")
	pf.StringVar(&flags.attestorURL, "attestor-url", "", "attestor gateway base URL (env ZKATTEST_ATTESTOR_URL)")
	pf.StringVar(&flags.appID, "app-id", "", "attestor application id (env ZKATTEST_APP_ID)")
	pf.StringSliceVar(&flags.allocators, "allocator", nil, "trusted allocator address, repeatable (env ZKATTEST_TRUSTED_ALLOCATORS)")
	pf.StringVar(&flags.metrics, "metrics", "", "metrics backend: otel, prometheus or none (env ZKATTEST_METRICS)")

	cmd.AddCommand(
		newVerifyCmd(flags),
		newAttestCmd(flags),
		newServeCmd(flags),
		newDevAttestorCmd(),
		version.NewVersionCmd(),
	)
	return cmd, flags
}

// loadConfig reads the environment, applies the flags the user set and then
// validates the result, so a flag can correct a bad environment value.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	if changed("rpc-url") {
		cfg.RPCURL = flags.rpcURL
	}
	if changed("chain-id") {
		cfg.ChainID = flags.chainID
	}
	if changed("contract") {
		cfg.ContractAddress = flags.contract
	}
	if changed("attestor-url") {
		cfg.AttestorURL = flags.attestorURL
	}
	if changed("app-id") {
		cfg.AppID = flags.appID
	}
	if changed("allocator") {
		cfg.TrustedAllocators = config.NormalizeAddresses(flags.allocators)
	}
	if changed("metrics") {
		cfg.Metrics = flags.metrics
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
