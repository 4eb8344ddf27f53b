package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/grip/internal/git"
	"github.com/ZebulonRouseFrantzich/grip/internal/output"
)

func (a *app) newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage package registries",
		Long: `Manage the registries grip searches for packages.

A registry URL points at an index document (YAML or JSON) over HTTP(S), a
local file, or a git repository holding index.yaml at its root. Registries
are searched in ascending priority order; the "default" registry is always
present and cannot be removed.`,
	}
	cmd.AddCommand(a.newRegistryAddCmd(), a.newRegistryRemoveCmd(), a.newRegistryListCmd())
	return cmd
}

func (a *app) newRegistryAddCmd() *cobra.Command {
	var priority int
	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a registry",
		Example: `  grip registry add team https://example.com/index.yaml --priority 10
  grip registry add local ./index.yaml
  grip registry add work git@github.com:acme/grip-registry.git`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := a.newInstaller(ctx, installerOptions{})
			if err != nil {
				return err
			}

			url, err := normalizeRegistryURL(args[1])
			if err != nil {
				return err
			}
			if err := in.RegistryAdd(ctx, args[0], url, priority); err != nil {
				return err
			}
			output.NewPrinter(a.stdout).Success("Added registry %s (priority %d)", args[0], priority)
			return nil
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "lower values are searched first")
	return cmd
}

func (a *app) newRegistryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a registry and its cached index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := a.newInstaller(ctx, installerOptions{})
			if err != nil {
				return err
			}
			res, err := in.RegistryRemove(ctx, args[0])
			if err != nil {
				return err
			}

			out := output.NewPrinter(a.stdout)
			out.Success("Removed registry %s", res.Name)
			if len(res.Packages) > 0 {
				out.Warn("%s installed from %s remain installed: %s",
					output.Plural(len(res.Packages), "package"), res.Name, strings.Join(res.Packages, ", "))
			}
			return nil
		},
	}
}

func (a *app) newRegistryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured registries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := a.newInstaller(ctx, installerOptions{})
			if err != nil {
				return err
			}
			regs, err := in.RegistryList(ctx)
			if err != nil {
				return err
			}
			out := output.NewPrinter(a.stdout)
			out.Printf("%s", out.RenderRegistryTable(regs))
			return nil
		},
	}
}

// normalizeRegistryURL makes plain local paths absolute so the registry
// keeps working from any directory.
func normalizeRegistryURL(raw string) (string, error) {
	if raw == "" || git.IsGitURL(raw) || strings.Contains(raw, "://") {
		return raw, nil
	}
	return filepath.Abs(raw)
}
