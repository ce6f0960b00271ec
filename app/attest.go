package app

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation"
	"github.com/trufnetwork/zkattest/attestation/config"
	"github.com/trufnetwork/zkattest/attestation/launcher"
	"github.com/trufnetwork/zkattest/attestation/orchestrator"
)

func newAttestCmd(flags *rootFlags) *cobra.Command {
	var (
		schemas []string
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "attest",
		Short: "Request attestations from the attestor and commit them on chain",
		Long: "Attest launches one task per schema against the attestor gateway, verifies each returned " +
			"bundle and submits it from the configured wallet. Schemas run concurrently; each attempt " +
			"is independent and is never retried.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				schemas = config.Schemas(config.DefaultCatalog)
			}
			schemas = lo.Uniq(lo.Compact(schemas))
			if len(schemas) == 0 {
				return errors.New("pass --schema at least once or --all")
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := zap.L()
			ctx := cmd.Context()

			policy, err := cfg.TrustPolicy()
			if err != nil {
				return err
			}
			l, err := launcher.NewClient(cfg.AttestorURL, cfg.AppID, launcher.WithLogger(logger))
			if err != nil {
				return err
			}
			sub, closeClient, err := newSubmitter(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeClient()

			recorder, _ := newMetrics(cfg, logger)
			o := orchestrator.New(l, sub, attestation.NewSignatureVerifier(policy, nil),
				orchestrator.WithEnvironmentChecker(sub),
				orchestrator.WithLogger(logger),
				orchestrator.WithMetrics(recorder),
				orchestrator.WithExplorer(cfg.ExplorerURL))

			attempts := lo.Map(schemas, func(id string, _ int) orchestrator.Attempt {
				return orchestrator.Attempt{SchemaID: id, Account: sub.Account()}
			})
			outcomes := o.RunAll(ctx, attempts, cfg.Concurrency)

			titles := config.CardsBySchema(config.DefaultCatalog)
			failed := 0
			for _, out := range outcomes {
				label := out.Attempt.SchemaID
				if t, ok := titles[label]; ok {
					label = strings.Join(t, " / ") + " (" + label + ")"
				}
				link := out.ExplorerURL
				if link == "" {
					link = out.TxID()
				}
				switch out.Final.Phase() {
				case orchestrator.PhaseConfirmed:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: confirmed %s\n", label, link)
				case orchestrator.PhaseSubmissionFailed:
					failed++
					if link == "" {
						link = "not broadcast"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s [%s] %v\n", label, out.Final.Phase(), link, out.Err())
				default:
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s) %v\n", label, out.Final.Phase(), out.Reason(), out.Err())
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d attestations failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&schemas, "schema", nil, "schema id to attest, repeatable")
	cmd.Flags().BoolVar(&all, "all", false, "attest every schema in the default catalog")
	cmd.MarkFlagsMutuallyExclusive("schema", "all")
	return cmd
}
