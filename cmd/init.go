package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/ui"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

var (
	initProvider string
	initFormat   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter .cloudencrypt.yml config",
	Long: `Creates a starter config in the current directory. Without --provider the
provider is detected from the installed cloud CLIs, falling back to aws.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		spinner, cleanup := startSpinner("Creating config...", false)
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			Provider: initProvider,
			Format:   initFormat,
		})
		if errors.Is(err, kerrors.ErrConfigExists) {
			Logger.Infof("Config already exists, skipping")
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " A .cloudencrypt config already exists. Skipping creation."
			return nil
		}
		if err != nil {
			return reportFailure(spinner, "Failed to create config", err)
		}
		Logger.Infof("Created %s for provider %s (detected=%t)", result.Path, result.Provider, result.Detected)

		spinner.FinalMSG = ui.Done("Created "+ui.Path.Sprint(result.Path)+" for "+ui.Provider.Sprint(result.Provider)) + "\n" +
			ui.Hint("Fill in the "+ui.Code.Sprint("kms")+" settings, then run "+ui.Code.Sprint("cloud-encrypt --check"))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initProvider, "provider", "", "provider to seed the config with (aws|azure|gcp|oci|local)")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "config format (yaml|toml)")
}

func resetInitCommandState() {
	initProvider = ""
	initFormat = "yaml"
}
