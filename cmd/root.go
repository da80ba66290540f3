package cmd

import (
	"fmt"
	"os"

	"github.com/ctxpack/ctxpack/config"
	"github.com/ctxpack/ctxpack/constants/lipgloss"
	"github.com/spf13/cobra"
)

const version = "1.2.0"

// RootDependencies holds everything a subcommand handler needs.
type RootDependencies struct {
	Config *config.Config
	Cwd    string
}

var rootCmd = &cobra.Command{
	Use:   "ctxpack",
	Short: "Pack a source tree into size-bounded text bundles with a byte-offset source map.",
	Long: `ctxpack discovers the eligible files of a source tree (through git metadata
when available, extension-filtered scanning otherwise), normalizes them in
parallel, and concatenates them into fixed-capacity text bundles. A JSON
source map records the exact byte and line range of every file within its
bundle, so any file can be located inside the packed output.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintln(os.Stderr, lipgloss.Info.Render("ctxpack version "+version))
			return
		}
		_ = cmd.Help()
	},
}

// handleRootCommand loads configuration and resolves the working directory.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error getting current directory: %v", err)))
		os.Exit(1)
	}

	cfg := config.LoadConfigs(cmd.Root(), cwd)

	return &RootDependencies{
		Config: cfg,
		Cwd:    cwd,
	}
}

// Execute runs the root command.
func Execute() {
	config.InitFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}
