package cmd

import (
	"fmt"
	"runtime"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/cloudencrypt/internal/kms"
	"github.com/PolarWolf314/cloudencrypt/internal/ui"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and registered providers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		figure.NewColorFigure("cloud-encrypt", "small", "cyan", true).Print()
		fmt.Println()
		fmt.Printf("%s %s (%s/%s)\n", ui.Success.Sprint("cloud-encrypt"), Version, runtime.GOOS, runtime.GOARCH)
		fmt.Printf("providers: %s\n", ui.Muted.Sprint(fmt.Sprint(kms.DefaultRegistry.Providers())))
	},
}
