package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctxpack/ctxpack/bundler"
	"github.com/ctxpack/ctxpack/constants/lipgloss"
	"github.com/ctxpack/ctxpack/utils"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect [source_dir] [out_dir]",
	Short: "Copy eligible files flat into a destination directory.",
	Long: `The 'collect' subcommand copies every eligible file of the source tree
into the destination directory without normalization or bundling. Files
keep their base name; collisions get a numeric suffix before the extension
(main.go, main_1.go, ...).

Defaults: source_dir '.', out_dir './ctxpack-out'.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		handleCollectCommand(rootDependencies, args)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func handleCollectCommand(rootDependencies *RootDependencies, args []string) {
	sourceDir := "."
	outDir := defaultOutDir
	if len(args) > 0 {
		sourceDir = args[0]
	}
	if len(args) > 1 {
		outDir = args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error creating output directory: %v", err)))
		os.Exit(1)
	}

	lock, err := utils.AcquireRunLock(outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
	defer lock.Release()

	b := bundler.NewBundler(bundler.Options{
		SourceDir:   sourceDir,
		OutDir:      outDir,
		Extensions:  rootDependencies.Config.ExtensionList(),
		ExcludeDirs: rootDependencies.Config.ExcludeList(),
		Workers:     rootDependencies.Config.WorkerCount(),
	})

	copied, err := b.Collect(ctx)
	if err != nil {
		lock.Release()
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}

	if copied == 0 {
		fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render("No eligible files found."))
		return
	}
	fmt.Fprintln(os.Stderr, lipgloss.Green.Render(fmt.Sprintf("✓ Copied %d files into %s", copied, outDir)))
}
