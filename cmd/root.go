package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
	logger "github.com/PolarWolf314/cloudencrypt/internal/logging"
	"github.com/PolarWolf314/cloudencrypt/internal/providers"
	"github.com/PolarWolf314/cloudencrypt/internal/ui"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	scanDryRun    bool
	scanDecrypt   bool
	scanCheck     bool
	scanJSON      bool
	scanKeepGoing bool
	scanProvider  string
	scanSettings  []string

	RootCmd = &cobra.Command{
		Use:   "cloud-encrypt [TARGET...]",
		Short: "Encrypt, decrypt, and audit configuration files across AWS, Azure, GCP, and OCI",
		Long: `cloud-encrypt finds sensitive properties (names containing password, secret,
token or key) in .properties, .env and YAML files and replaces their values
with ENC(...) ciphertext produced by a cloud KMS.

TARGET may be a file, a directory (walked for .properties, .env, .yml and
.yaml files) or a glob such as 'src/**/*.properties'. Without targets the
include patterns from .cloudencrypt.yml are used.

Examples:
  # Encrypt every sensitive value under src/main/resources
  cloud-encrypt src/main/resources

  # Preview what would be decrypted
  cloud-encrypt --decrypt --dry-run config/app.properties

  # Fail a CI build when plaintext secrets are committed
  cloud-encrypt --check --json`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		RunE: runScan,
	}
)

func init() {
	providers.RegisterBuiltins(kms.DefaultRegistry)

	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "preview changes without writing files")
	RootCmd.Flags().BoolVar(&scanDecrypt, "decrypt", false, "decrypt ENC(...) values (default is encrypt unless overridden in config)")
	RootCmd.Flags().BoolVar(&scanCheck, "check", false, "audit for plaintext secrets and exit non-zero if any are found")
	RootCmd.Flags().BoolVar(&scanJSON, "json", false, "emit a machine-readable JSON summary")
	RootCmd.Flags().BoolVar(&scanKeepGoing, "keep-going", false, "continue with remaining files after a failure")
	addProviderFlags(RootCmd.Flags(), &scanProvider, &scanSettings, "KMS provider (aws|azure|gcp|oci|local)")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(storeCmd)
	RootCmd.AddCommand(fileCmd)
	RootCmd.AddCommand(secretCmd)
	RootCmd.AddCommand(versionCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting scan command")

	env, cfg, err := loadEnv()
	if err != nil {
		return reportFailure(nil, "Failed to load .cloudencrypt config", err)
	}
	jsonMode := scanJSON || cfg.JSON

	settings, err := workflows.ParseSettings("set", scanSettings)
	if err != nil {
		return reportFailure(nil, "Invalid --set value", err)
	}

	spinner, cleanup := startSpinner("Scanning configuration files...", jsonMode)
	defer cleanup()

	opts := workflows.ScanOptions{
		Env:       env,
		Targets:   args,
		DryRun:    scanDryRun,
		Decrypt:   scanDecrypt,
		Check:     scanCheck,
		KeepGoing: scanKeepGoing,
		Provider:  scanProvider,
		Settings:  settings,
	}
	Logger.Debugf("Scan options: targets=%v dryRun=%t decrypt=%t check=%t keepGoing=%t", args, scanDryRun, scanDecrypt, scanCheck, scanKeepGoing)

	result, err := workflows.Scan(cmd.Context(), opts)
	if result == nil {
		return reportFailure(spinner, "Failed to scan configuration files", err)
	}
	Logger.Infof("Processed %d file(s) with provider %s", result.FileCount, result.Provider)

	if jsonMode {
		out, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return Logger.ErrorfAndReturn("failed to encode summary: %w", merr)
		}
		spinner.FinalMSG = string(out)
		if err != nil {
			return reported(err)
		}
		return nil
	}

	spinner.FinalMSG = scanMessage(result, err)
	if err != nil {
		return reported(err)
	}
	return nil
}

func scanMessage(result *workflows.ScanResult, err error) string {
	header := "Provider: " + ui.Provider.Sprint(result.Provider) + "\n" +
		fmt.Sprintf("Processed %d file(s)", result.FileCount)

	switch {
	case errors.Is(err, kerrors.ErrUnencryptedSecrets):
		return header + "\n" + ui.Failed("Found unencrypted secrets in:", nil) + ui.FormatPaths(result.InsecureFiles) +
			ui.Hint("Run "+ui.Code.Sprint("cloud-encrypt")+" to encrypt them")
	case err != nil:
		return header + "\n" + failureMessage("Some files could not be processed", err)
	case result.Mode == "check":
		return header + "\n" + ui.Done("All secrets are encrypted.")
	}

	var b []string
	for _, r := range result.Results {
		if r.Changed == 0 {
			continue
		}
		line := fmt.Sprintf("%s %s: %s", ui.Path.Sprint(r.File), ui.Muted.Sprintf("%d", r.Changed), ui.FormatKeys(r.Keys))
		b = append(b, line)
	}
	verb := "Encrypted"
	if result.Mode == "decrypt" {
		verb = "Decrypted"
	}
	if result.DryRun {
		verb = ui.DryRunBanner() + " Would have " + strings.ToLower(verb)
	}
	msg := header + "\n" + ui.Done(fmt.Sprintf("%s %d value(s)", verb, result.Changed))
	for _, line := range b {
		msg += "\n    - " + line
	}
	return msg
}

