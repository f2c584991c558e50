package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/cloudencrypt/internal/ui"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

var (
	storeStdin    bool
	storeWrap     bool
	storeNoWrap   bool
	storeOutput   string
	storeName     string
	storeProvider string
	storeSettings []string
)

var storeCmd = &cobra.Command{
	Use:   "store [SECRET|KEY=VALUE]",
	Short: "Encrypt a secret via KMS and optionally write it to a file",
	Long: `Encrypts one value and prints the ciphertext. With --output the ciphertext is
written to a file: as KEY=ENC(...) when a key is known (from --name or a
KEY=VALUE argument), otherwise appended as a line.

Without an argument or --stdin the value is read from the terminal without echo.

Examples:
  cloud-encrypt store db.password=hunter2 --output src/main/resources/app.properties
  echo -n "$TOKEN" | cloud-encrypt store --stdin --name api.token --output .env`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting store command")

		env, _, err := loadEnv()
		if err != nil {
			return reportFailure(nil, "Failed to load .cloudencrypt config", err)
		}
		settings, err := workflows.ParseSettings("set", storeSettings)
		if err != nil {
			return reportFailure(nil, "Invalid --set value", err)
		}

		opts := workflows.StoreOptions{
			Env:      env,
			NoWrap:   storeNoWrap || !storeWrap,
			Output:   storeOutput,
			Name:     storeName,
			Provider: storeProvider,
			Settings: settings,
		}
		if len(args) == 1 {
			opts.Secret = args[0]
		}
		var stdin io.Reader
		switch {
		case storeStdin:
			Logger.Debugf("Reading secret from stdin")
			stdin = cmd.InOrStdin()
		case len(args) == 0 && ui.IsTerminal(cmd.InOrStdin()):
			secret, err := ui.ReadSecret("Secret: ")
			if err != nil {
				return reportFailure(nil, "Failed to read secret", err)
			}
			opts.Secret = secret
		}
		opts.Stdin = stdin

		spinner, cleanup := startSpinner("Encrypting secret...", false)
		defer cleanup()

		result, err := workflows.Store(cmd.Context(), opts)
		if err != nil {
			return reportFailure(spinner, "Failed to encrypt secret", err)
		}
		Logger.Infof("Encrypted secret with provider %s", result.Provider)

		msg := result.Ciphertext
		switch {
		case result.Output != "" && result.Appended:
			msg += "\n" + ui.Done("Appended ciphertext to "+ui.Path.Sprint(storeOutput))
		case result.Output != "":
			msg += "\n" + ui.Done("Stored "+ui.Key.Sprint(result.Name)+" in "+ui.Path.Sprint(storeOutput))
		}
		spinner.FinalMSG = msg
		return nil
	},
}

func init() {
	storeCmd.Flags().BoolVar(&storeStdin, "stdin", false, "read plaintext from stdin")
	storeCmd.Flags().BoolVar(&storeWrap, "wrap", true, "wrap ciphertext in ENC(...)")
	storeCmd.Flags().BoolVar(&storeNoWrap, "no-wrap", false, "print the raw ciphertext without ENC(...)")
	storeCmd.Flags().StringVar(&storeOutput, "output", "", "write the ciphertext to `FILE`")
	storeCmd.Flags().StringVar(&storeName, "name", "", "property `KEY` when writing KEY=VALUE to --output")
	addProviderFlags(storeCmd.Flags(), &storeProvider, &storeSettings, "KMS provider")
}

func resetStoreCommandState() {
	storeStdin = false
	storeWrap = true
	storeNoWrap = false
	storeOutput = ""
	storeName = ""
	storeProvider = ""
	storeSettings = nil
}
