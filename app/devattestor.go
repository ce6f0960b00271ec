package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation/attestortest"
)

func newDevAttestorCmd() *cobra.Command {
	var (
		listen        string
		bindRecipient bool
		deny          []string
		allocatorKey  string
		validatorKey  string
	)
	cmd := &cobra.Command{
		Use:   "dev-attestor",
		Short: "Run a local attestor gateway that signs bundles with development keys",
		Long: "dev-attestor serves POST /v1/tasks/launch and answers every task with a bundle signed by " +
			"its allocator and validator keys, generated at startup unless --allocator-key and " +
			"--validator-key are given. Trust its allocator by exporting the printed " +
			"ZKATTEST_TRUSTED_ALLOCATORS value.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := attestortest.NewFromHex(allocatorKey, validatorKey)
			if err != nil {
				return err
			}
			a.BindRecipient = bindRecipient
			for _, id := range deny {
				a.Deny(id)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ZKATTEST_TRUSTED_ALLOCATORS=%s\n", a.Allocator.Address().Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "ZKATTEST_ATTESTOR_URL=http://%s\n", listen)

			logger := zap.L()
			srv := &http.Server{
				Addr:              listen,
				Handler:           a.Handler(logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serveUntilSignal(cmd.Context(), srv, logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8090", "listen address")
	cmd.Flags().BoolVar(&bindRecipient, "bind-recipient", false, "have the validator sign over the requesting account")
	cmd.Flags().StringVar(&allocatorKey, "allocator-key", "", "hex allocator private key (default: generated)")
	cmd.Flags().StringVar(&validatorKey, "validator-key", "", "hex validator private key (default: generated)")
	cmd.Flags().StringSliceVar(&deny, "deny", nil, "schema id to answer with code 110001, repeatable")
	return cmd
}
