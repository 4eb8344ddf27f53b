package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/download"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	download.UserAgent = "grip/" + Version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errDrift) {
			return 1
		}
		fmt.Fprintf(stderr, "Error: %s\n", config.FormatError(err, a.verbose))
		return 1
	}
	return 0
}

// app carries the parsed global flags and I/O streams down to commands.
type app struct {
	verbose bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "grip",
		Short: "Install command-line tools from GitHub releases",
		Long: `grip installs prebuilt binaries published as GitHub release assets.

Packages are looked up by name in one or more registries. Each install is
unpacked into its own versioned directory, added to your PATH and recorded
so it can be listed or uninstalled later.

Examples:
  # Install the latest release, choosing the asset interactively
  grip install ripgrep

  # Install an exact release and asset without prompting
  grip install foo --version 1.2.0 --asset foo-linux.tar.gz

  # Add a team registry that is consulted before the default one
  grip registry add team https://example.com/index.yaml --priority -1`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(a.stderr)
			if a.verbose {
				log.SetVerbose(true)
			}
		},
	}
	root.SetVersionTemplate("grip {{.Version}}\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.newInstallCmd(),
		a.newUninstallCmd(),
		a.newListCmd(),
		a.newRegistryCmd(),
		a.newInitCmd(),
		a.newCheckCmd(),
	)
	return root
}
