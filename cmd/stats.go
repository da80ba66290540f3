package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctxpack/ctxpack/bundler"
	"github.com/ctxpack/ctxpack/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [source_dir]",
	Short: "Show eligible files grouped by detected language.",
	Long: `The 'stats' subcommand discovers the eligible files of the source tree and
prints a per-language breakdown (file count, bytes, lines) without writing
any output files. Useful for previewing what a pack run would include.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		handleStatsCommand(rootDependencies, args)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func handleStatsCommand(rootDependencies *RootDependencies, args []string) {
	sourceDir := "."
	if len(args) > 0 {
		sourceDir = args[0]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b := bundler.NewBundler(bundler.Options{
		SourceDir:   sourceDir,
		Extensions:  rootDependencies.Config.ExtensionList(),
		ExcludeDirs: rootDependencies.Config.ExcludeList(),
		Workers:     rootDependencies.Config.WorkerCount(),
	})

	stats, err := b.Stats(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}

	if len(stats) == 0 {
		fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render("No eligible files found."))
		return
	}

	rows := pterm.TableData{{"Language", "Files", "Bytes", "Lines"}}
	totalFiles, totalBytes, totalLines := 0, int64(0), 0
	for _, s := range stats {
		rows = append(rows, []string{
			s.Language,
			fmt.Sprintf("%d", s.FileCount),
			fmt.Sprintf("%d", s.ByteSize),
			fmt.Sprintf("%d", s.LineCount),
		})
		totalFiles += s.FileCount
		totalBytes += s.ByteSize
		totalLines += s.LineCount
	}
	rows = append(rows, []string{"Total", fmt.Sprintf("%d", totalFiles), fmt.Sprintf("%d", totalBytes), fmt.Sprintf("%d", totalLines)})

	_ = pterm.DefaultTable.
		WithHasHeader().
		WithWriter(os.Stderr).
		WithData(rows).
		Render()
}
