package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"phpx/internal/runner"
)

var overrideBootstrap bool

func newOverrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage pinned package overrides for the current project",
	}

	cmd.AddCommand(newOverrideAddCmd())
	cmd.AddCommand(newOverrideRemoveCmd())
	cmd.AddCommand(newOverrideListCmd())

	return cmd
}

func newOverrideAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <package[@version]>",
		Short: "Install a library package as an override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner.New(configPath)
			if err != nil {
				return err
			}
			opts := runner.Options{SkipVerify: skipVerify, PHPPath: phpPath}
			if err := r.InstallOverridePackage(cmd.Context(), args[0], overrideBootstrap, opts); err != nil {
				return err
			}
			cmd.Printf("Override installed: %s\n", args[0])
			if overrideBootstrap {
				cmd.Println("Wrote override_autoload.php; require it before the project autoloader.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overrideBootstrap, "bootstrap", false, "Regenerate override_autoload.php in the working directory")

	return cmd
}

func newOverrideRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <package> [version]",
		Short: "Remove installed overrides, all versions when none is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner.New(configPath)
			if err != nil {
				return err
			}

			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			removed, err := r.RemoveOverridePackage(args[0], version)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				cmd.Printf("No override found for %s\n", args[0])
				return nil
			}
			for _, dir := range removed {
				cmd.Printf("Removed %s\n", dir)
			}
			return nil
		},
	}
}

func newOverrideListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner.New(configPath)
			if err != nil {
				return err
			}
			overrides, err := r.ListOverridePackages()
			if err != nil {
				return err
			}
			if len(overrides) == 0 {
				cmd.Println("(no overrides installed)")
				return nil
			}

			cmd.Println(headerStyle.Render(fmt.Sprintf("%-32s %s", "Package", "Version")))
			for _, o := range overrides {
				cmd.Printf("%-32s %s\n", o.Package, o.Version)
				cmd.Println(dimStyle.Render("  " + o.Dir))
			}
			return nil
		},
	}
}
