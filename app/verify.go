package app

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trufnetwork/zkattest/attestation"
	"github.com/trufnetwork/zkattest/attestation/launcher"
	"github.com/trufnetwork/zkattest/attestation/orchestrator"
)

type verifyOutput struct {
	Payload  *attestation.AttestationCallPayload `json:"payload"`
	Calldata string                              `json:"calldata"`
}

func newVerifyCmd(flags *rootFlags) *cobra.Command {
	var schemaID, account, bundlePath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a result bundle and print the attest() payload",
		Long: "Verify parses a result bundle, binds it to the requested schema, checks the allocator and " +
			"validator signatures and prints the payload and calldata that would be submitted. It does " +
			"not contact the chain.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(account) {
				return errors.Errorf("account %q is not a hex address", account)
			}
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			policy, err := cfg.TrustPolicy()
			if err != nil {
				return err
			}
			raw, err := readBundle(cmd, bundlePath)
			if err != nil {
				return err
			}

			state := orchestrator.VerifyOnly(cmd.Context(), launcher.Static(raw),
				attestation.NewSignatureVerifier(policy, nil),
				orchestrator.Attempt{SchemaID: schemaID, Account: common.HexToAddress(account)})
			switch st := state.(type) {
			case orchestrator.Rejected:
				return st.Err
			case orchestrator.Verified:
				payload := st.Encode().Payload
				calldata, err := payload.Calldata()
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(verifyOutput{Payload: payload, Calldata: hexutil.Encode(calldata)})
			}
			return errors.Errorf("unexpected state %s", state.Phase())
		},
	}
	cmd.Flags().StringVar(&schemaID, "schema", "", "schema id the bundle was requested for")
	cmd.Flags().StringVar(&account, "account", "", "account the attestation is for")
	cmd.Flags().StringVar(&bundlePath, "bundle", "-", "bundle JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func readBundle(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "read bundle from stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "read bundle %s", path)
}
