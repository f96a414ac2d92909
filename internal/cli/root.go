package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phpx/internal/executor"
	"phpx/internal/logx"
	"phpx/internal/runner"
)

var (
	verbose       bool
	configPath    string
	clearCache    bool
	noCache       bool
	skipVerify    bool
	phpPath       string
	noLocal       bool
	noInteraction bool
)

// Execute runs the root cobra command. A tool's own exit code passes through
// verbatim and without extra output, so wrapping a tool in phpx is invisible
// to scripts that check exit statuses.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *executor.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phpx [tool[@version]] [args...]",
		Short: "Run PHP tools without installing them",
		Long: "phpx resolves a PHP tool by name, fetches and caches it, and runs it\n" +
			"with the arguments you pass. Versions pin with tool@1.2.3 or a range\n" +
			"like tool@^2.0.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logx.Init(verbose)
		},
		RunE: runTool,
	}

	// Everything after the tool name belongs to the tool, including flags.
	cmd.Flags().SetInterspersed(false)

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false, "Skip artifact verification")
	cmd.PersistentFlags().StringVar(&phpPath, "php", "", "PHP interpreter to execute with")
	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Drop cached copies of the tool before running")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not use the cache for this run (still caches after download)")
	cmd.Flags().BoolVar(&noLocal, "no-local", false, "Ignore locally installed copies of the tool")
	cmd.Flags().BoolVar(&noInteraction, "no-interaction", false, "Append --no-interaction to the tool invocation")

	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newOverrideCmd())

	return cmd
}

func runTool(cmd *cobra.Command, args []string) error {
	r, err := runner.New(configPath)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if clearCache {
			if err := r.CleanCache(""); err != nil {
				return err
			}
			cmd.Println("Cache cleared.")
			return nil
		}
		return cmd.Help()
	}

	return r.RunTool(cmd.Context(), args[0], args[1:], runner.Options{
		ClearCache:    clearCache,
		NoCache:       noCache,
		SkipVerify:    skipVerify,
		NoLocal:       noLocal,
		NoInteraction: noInteraction,
		PHPPath:       phpPath,
	})
}
