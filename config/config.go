package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ctxpack/ctxpack/constants/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Extensions     string `mapstructure:"extensions"`
	TrimWhitespace bool   `mapstructure:"trim_whitespace"`
	ExcludeDirs    string `mapstructure:"exclude_dirs"`
	Workers        int    `mapstructure:"workers"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Extensions:     ".go,.py,.js,.ts,.jsx,.tsx,.java,.c,.h,.cpp,.hpp,.cs,.rb,.rs,.php,.sh,.pl,.lua,.kt,.swift,.md,.txt,.json,.yaml,.yml,.toml,.ini,.sql,.html,.css,.proto",
	TrimWhitespace: false,
	ExcludeDirs:    "",
	Workers:        0, // 0 resolves to the number of CPUs
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	// Set default values using Viper
	setDefaults()

	// Automatically read environment variables
	viper.AutomaticEnv()

	// Explicitly bind environment variables to config keys
	bindEnv()

	// Check if the user provided a config file
	if cfgFile != "" {
		// Use the config file from the flag
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	} else {
		// Look for configuration files in the working directory
		viper.SetConfigName("ctxpack-config")
		viper.AddConfigPath(cwd)

		// Support both YAML and JSON formats
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigType("json")
			// Missing config file is fine, defaults apply
			_ = viper.ReadInConfig()
		}
	}

	// Bind CLI flags to override config values
	bindFlags(rootCmd)

	// Unmarshal the configuration into the Config struct
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("extensions", DefaultConfig.Extensions)
	viper.SetDefault("trim_whitespace", DefaultConfig.TrimWhitespace)
	viper.SetDefault("exclude_dirs", DefaultConfig.ExcludeDirs)
	viper.SetDefault("workers", DefaultConfig.Workers)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("extensions", "CTXPACK_EXTENSIONS")
	_ = viper.BindEnv("trim_whitespace", "CTXPACK_TRIM")
	_ = viper.BindEnv("exclude_dirs", "CTXPACK_EXCLUDE")
	_ = viper.BindEnv("workers", "CTXPACK_WORKERS")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("extensions", rootCmd.PersistentFlags().Lookup("extensions"))
	_ = viper.BindPFlag("trim_whitespace", rootCmd.PersistentFlags().Lookup("trim"))
	_ = viper.BindPFlag("exclude_dirs", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("extensions", DefaultConfig.Extensions, "Comma-separated list of file extensions eligible for packing (case-insensitive).")
	rootCmd.PersistentFlags().Bool("trim", DefaultConfig.TrimWhitespace, "Strip trailing whitespace from every line while normalizing.")
	rootCmd.PersistentFlags().String("exclude", DefaultConfig.ExcludeDirs, "Comma-separated list of additional directory names to exclude from scanning.")
	rootCmd.PersistentFlags().Int("workers", DefaultConfig.Workers, "Number of parallel normalization workers (0 = number of CPUs).")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// ExtensionList returns the configured extensions as a slice.
func (c *Config) ExtensionList() []string {
	return splitList(c.Extensions)
}

// ExcludeList returns the configured extra excluded directories as a slice.
func (c *Config) ExcludeList() []string {
	return splitList(c.ExcludeDirs)
}

// WorkerCount resolves the effective worker count.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
