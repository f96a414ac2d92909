package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"phpx/internal/cache"
	"phpx/internal/runner"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached tools",
	}

	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCacheCleanCmd())
	cmd.AddCommand(newCacheInfoCmd())

	return cmd
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner.New(configPath)
			if err != nil {
				return err
			}
			printEntryTable(cmd, r.CacheEntries())
			return nil
		},
	}
}

func newCacheCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [tool[@version]]",
		Short: "Remove cached tools, or the whole cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner.New(configPath)
			if err != nil {
				return err
			}

			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			if err := r.CleanCache(target); err != nil {
				return err
			}
			if target == "" {
				cmd.Println("Cache cleared.")
			} else {
				cmd.Printf("Removed %s from the cache.\n", target)
			}
			return nil
		},
	}
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <tool>",
		Short: "Show cached versions of one tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner.New(configPath)
			if err != nil {
				return err
			}

			entries := r.CacheInfo(args[0])
			if len(entries) == 0 {
				cmd.Printf("No cached versions of %s.\n", args[0])
				return nil
			}
			printEntryTable(cmd, entries)
			return nil
		},
	}
}

func printEntryTable(cmd *cobra.Command, entries []cache.Entry) {
	if len(entries) == 0 {
		cmd.Println("(cache is empty)")
		return
	}

	rows := make([]cache.Entry, len(entries))
	copy(rows, entries)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ToolName != rows[j].ToolName {
			return rows[i].ToolName < rows[j].ToolName
		}
		return rows[i].Version < rows[j].Version
	})

	cmd.Println(headerStyle.Render(fmt.Sprintf("%-24s %-14s %-10s %-12s %s", "Tool", "Version", "Kind", "Size", "Last used")))
	for _, entry := range rows {
		kind := "phar"
		if entry.IsComposer {
			kind = "composer"
		}
		cmd.Printf("%-24s %-14s %-10s %-12s %s\n",
			entry.ToolName, entry.Version, kind,
			formatSize(entry.Size),
			time.Unix(entry.LastAccessed, 0).Format("2006-01-02 15:04"))
		cmd.Println(dimStyle.Render("  " + entry.FilePath))
	}
}

func formatSize(size int64) string {
	switch {
	case size <= 0:
		return "-"
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KiB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1024*1024))
	}
}
