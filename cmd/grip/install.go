package main

import (
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/grip/internal/output"
	"github.com/ZebulonRouseFrantzich/grip/internal/service"
)

type installFlags struct {
	version      string
	asset        string
	yes          bool
	refresh      bool
	skipChecksum bool
}

func (a *app) newInstallCmd() *cobra.Command {
	var f installFlags
	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package from its GitHub releases",
		Long: `Install a package by name.

The package is looked up in the configured registries, lowest priority value
first. Without --version and --asset you pick the release and asset from a
list; when stdin is not a terminal they must be given explicitly, or --yes
accepts the latest release and first asset.`,
		Example: `  grip install ripgrep
  grip install foo --version 1.2.0 --asset foo-linux.tar.gz
  grip install foo --yes --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.version, "version", "", "exact release tag to install")
	cmd.Flags().StringVar(&f.asset, "asset", "", "exact asset name to download")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "accept the latest release and first asset without prompting")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "refetch registry indexes even if cached")
	cmd.Flags().BoolVar(&f.skipChecksum, "skip-checksum", false, "do not verify the release's SHA-256 checksum file")
	return cmd
}

func (a *app) runInstall(cmd *cobra.Command, pkg string, f installFlags) error {
	ctx := cmd.Context()
	out := output.NewPrinter(a.stdout)
	progress := output.NewProgress(a.stdout, "")

	in, err := a.newInstaller(ctx, installerOptions{
		yes:      f.yes,
		refresh:  f.refresh,
		progress: progress,
		observer: installReporter(out, progress),
	})
	if err != nil {
		return err
	}

	res, err := in.Install(ctx, service.InstallRequest{
		Package:      pkg,
		Version:      f.version,
		Asset:        f.asset,
		SkipChecksum: f.skipChecksum,
	})
	if err != nil {
		progress.Finish()
		return err
	}

	for _, w := range res.Warnings {
		out.Warn("%s", w)
	}
	out.Success("Installed %s %s", res.Package, res.Version)
	if res.Checksum != "" {
		out.Printf("  verified against %s\n", res.Checksum)
	}
	if res.Replaced != "" {
		out.Printf("  replaced %s\n", res.Replaced)
	}
	if res.ExecutablePath != "" {
		out.Printf("  executable: %s\n", res.ExecutablePath)
	}
	if res.Path != nil && res.Path.Added {
		out.Info("Added %s to PATH in %s", res.InstallPath, res.Path.Location)
		out.Println(out.Dim("  Restart your shell or source that file to use it."))
	}
	return nil
}

// installReporter prints one line per pipeline step.
func installReporter(out *output.Printer, progress *output.Progress) service.Observer {
	return service.ObserverFunc(func(e service.Event) {
		switch e.State {
		case service.StateResolving:
			out.Info("Resolving %s", e.Detail)
		case service.StateSelectingRelease:
			out.Info("Fetching releases of %s", e.Detail)
		case service.StateDownloading:
			out.Info("Downloading %s", e.Detail)
			progress.Reset(e.Detail)
		case service.StateExtracting:
			progress.Finish()
			out.Info("Unpacking %s", e.Detail)
		}
	})
}
