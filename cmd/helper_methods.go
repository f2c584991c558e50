package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/pflag"

	"github.com/PolarWolf314/cloudencrypt/internal/configs"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/ui"
	"github.com/PolarWolf314/cloudencrypt/internal/workflows"
)

// ErrReported marks an error whose message was already printed. main exits
// non-zero without printing it again.
var ErrReported = errors.New("error already reported")

func reported(err error) error {
	return fmt.Errorf("%w: %w", ErrReported, err)
}

// startSpinner creates and starts a spinner with the given message when not in
// verbose, debug or quiet mode. Returns the spinner and a function that should
// be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, quiet bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	animate := !verbose && !debug && !quiet
	if animate {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running without spinner: %s", message)
	}

	cleanup := func() {
		if animate {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if animate {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// loadEnv loads the project config from the working directory.
func loadEnv() (workflows.Env, *configs.Config, error) {
	cfg, err := configs.Load(".")
	if err != nil {
		return workflows.Env{}, nil, err
	}
	if cfg.Path != "" {
		Logger.Infof("Loaded config from %s", cfg.Path)
	} else {
		Logger.Debugf("No .cloudencrypt config found, using defaults")
	}
	return workflows.Env{Config: cfg}, cfg, nil
}

// reportFailure sets the spinner's final message, or prints it when there is
// no spinner, and returns err marked as reported.
func reportFailure(s *spinner.Spinner, msg string, err error) error {
	Logger.Errorf("%s: %v", msg, err)
	text := failureMessage(msg, err)
	if s != nil {
		s.FinalMSG = text
	} else {
		fmt.Print(ui.EnsureNewline(text))
	}
	return reported(err)
}

// failureMessage renders err with a hint for the errors users can fix.
func failureMessage(msg string, err error) string {
	out := ui.Failed(msg, err)
	if hint := hintFor(err); hint != "" {
		out += "\n" + ui.Hint(hint)
	}
	return out
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrNoProvider):
		return "Set " + ui.Code.Sprint("provider") + " in .cloudencrypt.yml or pass " + ui.Flag.Sprint("--provider")
	case errors.Is(err, kerrors.ErrMissingSetting):
		return "Add the setting to .cloudencrypt.yml or pass " + ui.Flag.Sprint("--set KEY=VALUE")
	case errors.Is(err, kerrors.ErrUnsupportedProvider):
		return "Supported providers are aws, azure, gcp, oci and local"
	case errors.Is(err, kerrors.ErrNoFilesFound):
		return "Pass a file, directory or glob, or run " + ui.Code.Sprint("cloud-encrypt init") + " to configure includes"
	case errors.Is(err, kerrors.ErrProviderMismatch):
		return "Pass the provider the file was encrypted with, see " + ui.Code.Sprint("cloud-encrypt file inspect")
	case errors.Is(err, kerrors.ErrAuthenticationFailed):
		return "The file was modified after it was encrypted"
	case errors.Is(err, kerrors.ErrProvider):
		return "Check your cloud credentials and key permissions"
	}
	return ""
}

// addProviderFlags registers --provider and the repeatable --set KEY=VALUE.
func addProviderFlags(fs *pflag.FlagSet, provider *string, settings *[]string, what string) {
	fs.StringVar(provider, "provider", "", "override the "+what)
	fs.StringArrayVar(settings, "set", nil, "override a setting as KEY=VALUE (repeatable)")
}
