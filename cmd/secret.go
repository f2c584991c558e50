package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/cloudencrypt/internal/ui"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

var (
	secretProvider string
	secretSettings []string
	secretFile     string
	secretMeta     []string
	secretOutput   string
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage named secrets in a cloud secret store",
	Long: `Stores, reads and deletes named secrets in AWS Secrets Manager, GCP Secret
Manager, Azure Key Vault, OCI Vault, an S3 compatible bucket or memory.

The store is chosen by secretStore in .cloudencrypt.yml, falling back to
provider. Store settings live under secrets:.`,
}

var secretPutCmd = &cobra.Command{
	Use:   "put NAME [VALUE]",
	Short: "Create or replace a secret",
	Long: `Creates or replaces NAME. The value comes from VALUE, --file, piped stdin, or
is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting secret put command for %s", args[0])
		opts, err := secretOptions(args[0])
		if err != nil {
			return err
		}
		meta, err := workflows.ParseSettings("meta", secretMeta)
		if err != nil {
			return reportFailure(nil, "Invalid --meta value", err)
		}

		put := workflows.PutSecretOptions{SecretOptions: opts, File: secretFile, Metadata: meta}
		switch {
		case len(args) == 2:
			put.Value = []byte(args[1])
		case secretFile != "":
		case ui.IsTerminal(cmd.InOrStdin()):
			value, err := ui.ReadSecret("Value for " + args[0] + ": ")
			if err != nil {
				return reportFailure(nil, "Failed to read secret", err)
			}
			put.Value = []byte(value)
		default:
			Logger.Debugf("Reading secret value from stdin")
			value, err := ui.ReadAll(cmd.InOrStdin())
			if err != nil {
				return reportFailure(nil, "Failed to read secret", err)
			}
			put.Value = []byte(value)
		}

		spinner, cleanup := startSpinner("Storing secret...", false)
		defer cleanup()

		result, err := workflows.PutSecret(cmd.Context(), put)
		if err != nil {
			return reportFailure(spinner, "Failed to store "+ui.Highlight.Sprint(args[0]), err)
		}
		spinner.FinalMSG = ui.Done("Stored " + ui.Highlight.Sprint(result.Name) + " in " + ui.Provider.Sprint(result.Provider))
		return nil
	},
}

var secretGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a secret, or write it to --output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting secret get command for %s", args[0])
		opts, err := secretOptions(args[0])
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Reading secret...", false)
		defer cleanup()

		result, err := workflows.GetSecret(cmd.Context(), workflows.GetSecretOptions{SecretOptions: opts, Output: secretOutput})
		if err != nil {
			return reportFailure(spinner, "Failed to read "+ui.Highlight.Sprint(args[0]), err)
		}
		for k, v := range result.Record.Metadata() {
			Logger.Infof("metadata %s=%s", k, v)
		}

		if result.Output != "" {
			spinner.FinalMSG = ui.Done("Wrote " + ui.Highlight.Sprint(result.Name) + " to " + ui.Path.Sprint(result.Output))
			return nil
		}
		spinner.FinalMSG = string(result.Record.Data())
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting secret delete command for %s", args[0])
		opts, err := secretOptions(args[0])
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Deleting secret...", false)
		defer cleanup()

		result, err := workflows.DeleteSecret(cmd.Context(), opts)
		if err != nil {
			return reportFailure(spinner, "Failed to delete "+ui.Highlight.Sprint(args[0]), err)
		}
		spinner.FinalMSG = ui.Done("Deleted " + ui.Highlight.Sprint(result.Name) + " from " + ui.Provider.Sprint(result.Provider))
		return nil
	},
}

func secretOptions(name string) (workflows.SecretOptions, error) {
	env, _, err := loadEnv()
	if err != nil {
		return workflows.SecretOptions{}, reportFailure(nil, "Failed to load .cloudencrypt config", err)
	}
	settings, err := workflows.ParseSettings("set", secretSettings)
	if err != nil {
		return workflows.SecretOptions{}, reportFailure(nil, "Invalid --set value", err)
	}
	return workflows.SecretOptions{
		Env:      env,
		Name:     name,
		Provider: secretProvider,
		Settings: settings,
	}, nil
}

func init() {
	for _, c := range []*cobra.Command{secretPutCmd, secretGetCmd, secretDeleteCmd} {
		addProviderFlags(c.Flags(), &secretProvider, &secretSettings, "secret store (aws|gcp|azure|oci|s3|memory)")
	}
	secretPutCmd.Flags().StringVar(&secretFile, "file", "", "read the secret value from `FILE`")
	secretPutCmd.Flags().StringArrayVar(&secretMeta, "meta", nil, "attach metadata as KEY=VALUE (repeatable)")
	secretGetCmd.Flags().StringVar(&secretOutput, "output", "", "write the secret to `FILE` with mode 0600")

	secretCmd.AddCommand(secretPutCmd)
	secretCmd.AddCommand(secretGetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
}

func resetSecretCommandState() {
	secretProvider = ""
	secretSettings = nil
	secretFile = ""
	secretMeta = nil
	secretOutput = ""
}
