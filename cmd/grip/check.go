package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/grip/internal/drift"
	"github.com/ZebulonRouseFrantzich/grip/internal/service"
)

// errDrift makes check exit non-zero without printing another message.
var errDrift = errors.New("drift detected")

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Compare grip.json, installed packages and PATH",
		Long: `Check compares three views of your packages:

  - the dependencies declared in grip.json (current directory or [dir])
  - the packages grip has installed
  - the executables your PATH actually resolves

It exits with status 1 when anything is out of sync.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				dir = args[0]
			}

			in, err := a.newInstaller(ctx, installerOptions{})
			if err != nil {
				return err
			}
			report, err := in.Check(ctx, service.CheckRequest{ManifestDir: dir})
			if err != nil {
				return err
			}

			fmt.Fprint(a.stdout, drift.FormatDriftReport(report.Results))
			if report.Drifted() {
				return errDrift
			}
			return nil
		},
	}
}
