package cli

import (
	"fmt"
	"os"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gridbill",
	Short: "Gridbill - structured billing data from PDF utility invoices",
	Long: `Gridbill extracts structured billing data from PDF utility invoices.

It locates customer identity, billing period, meter readings, tiered usage
and monetary totals in the raw page text, tolerant of formatting variance
across invoice layouts, and writes privacy-aware CSV records. An optional
chart command renders an interactive usage/cost page from the CSV.

Sensitive fields (customer account and address) are redacted from every
output unless explicitly shown.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Gridbill.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gridbill v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.gridbill/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")

		// Search the home directory first, then the working directory
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.gridbill")
		}
		viper.AddConfigPath(".")
	}

	// Read in environment variables that match GRIDBILL_*
	viper.SetEnvPrefix("GRIDBILL")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults.
// Flag overrides are applied by each command afterwards.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid configuration, using defaults: %v\n", err)
		cfg = model.DefaultConfig()
	}
	if verbose {
		cfg.Verbose = true
	}
	return &cfg
}
