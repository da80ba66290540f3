package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/ctxpack/ctxpack/bundler"
	"github.com/ctxpack/ctxpack/constants/lipgloss"
	"github.com/ctxpack/ctxpack/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	defaultOutDir    = "ctxpack-out"
	defaultChunkSize = 10 * 1024 * 1024
)

var packCmd = &cobra.Command{
	Use:   "pack [source_dir] [out_dir] [chunk_size_bytes]",
	Short: "Pack eligible files into size-bounded bundles plus a source map.",
	Long: `The 'pack' subcommand runs the full pipeline: discover eligible files,
normalize them in parallel (line-ending unification, optional trailing
whitespace trim, per-file delimiter line), and greedily concatenate them in
relative-path order into bundles of the given byte capacity. The capacity is
a target, not a hard cap: a file larger than the capacity still occupies a
bundle of its own.

Defaults: source_dir '.', out_dir './ctxpack-out', chunk_size_bytes 10485760.`,
	Args: cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		handlePackCommand(rootDependencies, args)
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
}

func handlePackCommand(rootDependencies *RootDependencies, args []string) {
	sourceDir, outDir, chunkSize := packArgs(args)

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
		ChunkSize:   chunkSize,
		Extensions:  rootDependencies.Config.ExtensionList(),
		ExcludeDirs: rootDependencies.Config.ExcludeList(),
		Trim:        rootDependencies.Config.TrimWhitespace,
		Workers:     rootDependencies.Config.WorkerCount(),
	})

	spinner := pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).
		WithRemoveWhenDone(true).
		WithWriter(os.Stderr)
	spinnerInstance, _ := spinner.Start("Discovering files...")

	var bar *pterm.ProgressbarPrinter
	progress := func(done, total int) {
		if bar == nil {
			spinnerInstance.Stop()
			bar, _ = pterm.DefaultProgressbar.
				WithTotal(total).
				WithTitle("Normalizing").
				WithWriter(os.Stderr).
				Start()
		}
		bar.Increment()
	}

	sourceMap, err := b.Pack(ctx, progress)
	spinnerInstance.Stop()
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		lock.Release()
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}

	fileCount := 0
	for _, bm := range sourceMap.Bundles {
		fileCount += len(bm.Files)
	}
	if fileCount == 0 {
		fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render("No eligible files found; wrote an empty source map."))
		return
	}
	summary := fmt.Sprintf("Packed %d files into %d bundles\nOutput:     %s\nSource map: %s",
		fileCount, len(sourceMap.Bundles), outDir, filepath.Join(outDir, bundler.MapFileName))
	fmt.Fprintln(os.Stderr, lipgloss.BoxStyle.Render(lipgloss.Green.Render(summary)))
}

func packArgs(args []string) (string, string, int64) {
	sourceDir := "."
	outDir := defaultOutDir
	chunkSize := int64(defaultChunkSize)

	if len(args) > 0 {
		sourceDir = args[0]
	}
	if len(args) > 1 {
		outDir = args[1]
	}
	if len(args) > 2 {
		parsed, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || parsed < 1 {
			fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Invalid chunk size %q: must be a positive integer of bytes", args[2])))
			os.Exit(1)
		}
		chunkSize = parsed
	}
	return sourceDir, outDir, chunkSize
}
