package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation"
	"github.com/trufnetwork/zkattest/attestation/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification and attestation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			logger := zap.L()

			policy, err := cfg.TrustPolicy()
			if err != nil {
				return err
			}
			recorder, gatherer := newMetrics(cfg, logger)
			opts := []server.Option{
				server.WithLogger(logger),
				server.WithMetrics(recorder),
				server.WithExplorer(cfg.ExplorerURL),
			}
			if gatherer != nil {
				opts = append(opts, server.WithGatherer(gatherer))
			}
			if cfg.PrivateKey != "" {
				sub, closeClient, err := newSubmitter(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer closeClient()
				opts = append(opts, server.WithWallet(sub))
				logger.Info("submission enabled", zap.String("account", sub.Account().Hex()))
			} else {
				logger.Warn("no wallet key configured, POST /v1/attestations is disabled")
			}

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           server.New(attestation.NewSignatureVerifier(policy, nil), opts...).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serveUntilSignal(cmd.Context(), srv, logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (env ZKATTEST_LISTEN_ADDR)")
	return cmd
}

// serveUntilSignal runs srv until SIGINT/SIGTERM or ctx is done, then shuts
// it down gracefully.
func serveUntilSignal(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
