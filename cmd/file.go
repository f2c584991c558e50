package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/cloudencrypt/internal/ui"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

var (
	fileProvider string
	fileSettings []string
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Envelope-encrypt whole files",
	Long: `Encrypts a whole file with a fresh AES-256-GCM data key. The data key is
encrypted by the KMS provider and stored in a short text header.`,
}

var fileEncryptCmd = &cobra.Command{
	Use:   "encrypt INPUT OUTPUT",
	Short: "Encrypt INPUT into the envelope file OUTPUT",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(cmd, args, "Encrypting", workflows.EncryptFile)
	},
}

var fileDecryptCmd = &cobra.Command{
	Use:   "decrypt INPUT OUTPUT",
	Short: "Decrypt the envelope file INPUT into OUTPUT",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(cmd, args, "Decrypting", workflows.DecryptFile)
	},
}

var fileInspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the header of an envelope file without decrypting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Inspecting %s", args[0])
		meta, err := workflows.InspectFile(cmd.Context(), workflows.InspectOptions{Path: args[0]})
		if err != nil {
			return reportFailure(nil, "Failed to read envelope header", err)
		}
		fmt.Printf("provider:  %s\nalgorithm: %s\nencKey:    %s\n",
			ui.Provider.Sprint(meta.Provider), meta.Algorithm, ui.Muted.Sprint(abbreviate(meta.EncryptedKey, 48)))
		return nil
	},
}

type fileWorkflow func(ctx context.Context, opts workflows.FileOptions) (*workflows.FileResult, error)

func runFile(cmd *cobra.Command, args []string, verb string, fn fileWorkflow) error {
	Logger.Infof("%s %s into %s", verb, args[0], args[1])

	env, _, err := loadEnv()
	if err != nil {
		return reportFailure(nil, "Failed to load .cloudencrypt config", err)
	}
	settings, err := workflows.ParseSettings("set", fileSettings)
	if err != nil {
		return reportFailure(nil, "Invalid --set value", err)
	}

	spinner, cleanup := startSpinner(verb+" file...", false)
	defer cleanup()

	result, err := fn(cmd.Context(), workflows.FileOptions{
		Env:      env,
		Input:    args[0],
		Output:   args[1],
		Provider: fileProvider,
		Settings: settings,
	})
	if err != nil {
		return reportFailure(spinner, verb+" "+args[0]+" failed", err)
	}

	done := "Encrypted"
	if verb == "Decrypting" {
		done = "Decrypted"
	}
	spinner.FinalMSG = ui.Done(done + " " + ui.Path.Sprint(args[0]) + " into " + ui.Path.Sprint(args[1]) +
		" with " + ui.Provider.Sprint(result.Provider))
	return nil
}

// abbreviate shortens s to n characters with an ellipsis.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	for _, c := range []*cobra.Command{fileEncryptCmd, fileDecryptCmd} {
		addProviderFlags(c.Flags(), &fileProvider, &fileSettings, "KMS provider")
	}
	fileCmd.AddCommand(fileEncryptCmd)
	fileCmd.AddCommand(fileDecryptCmd)
	fileCmd.AddCommand(fileInspectCmd)
}

func resetFileCommandState() {
	fileProvider = ""
	fileSettings = nil
}
