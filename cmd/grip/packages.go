package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/grip/internal/output"
	"github.com/ZebulonRouseFrantzich/grip/internal/service"
)

func (a *app) newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <package>",
		Aliases: []string{"remove"},
		Short:   "Remove an installed package",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := a.newInstaller(ctx, installerOptions{})
			if err != nil {
				return err
			}
			res, err := in.Uninstall(ctx, args[0])
			if err != nil {
				return err
			}

			out := output.NewPrinter(a.stdout)
			out.Success("Uninstalled %s %s", res.Name, res.Version)
			if res.Path != nil && res.Path.Removed {
				out.Info("Removed PATH entry from %s", res.Path.Location)
			}
			return nil
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := a.newInstaller(ctx, installerOptions{})
			if err != nil {
				return err
			}
			entries, err := in.List(ctx)
			if err != nil {
				return err
			}

			out := output.NewPrinter(a.stdout)
			if len(entries) > 0 {
				out.Info("Installed packages (%s):", output.Plural(len(entries), "package"))
			}
			out.Printf("%s", out.RenderPackageTable(entries, time.Now()))
			return nil
		},
	}
}

func (a *app) newInitCmd() *cobra.Command {
	var force bool
	var name string
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a grip.json project manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				dir = args[0]
			}

			// Init touches no grip state, so it needs no data directory.
			in := service.NewInstaller(service.Deps{})
			path, err := in.Init(service.InitRequest{Dir: dir, Name: name, Force: force})
			if err != nil {
				return err
			}
			output.NewPrinter(a.stdout).Success("Created %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing grip.json")
	cmd.Flags().StringVar(&name, "name", "", "project name (default \"grip-project\")")
	return cmd
}
