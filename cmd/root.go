package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/opsdesk/internal/client"
	"github.com/joescharf/opsdesk/internal/logging"
	"github.com/joescharf/opsdesk/internal/output"
	"github.com/joescharf/opsdesk/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

// Build information, set from main via Execute.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "opsdesk",
	Short: "Streaming platform issue tracker",
	Long: `opsdesk tracks operational issues across Disney+, ESPN+, Hulu and Star+.

Run 'opsdesk serve' to start the GraphQL API, then use the issue
commands (or the MCP server) to list, create and update issues against it.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/opsdesk/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "GraphQL endpoint of a running server (default http://localhost:4000/graphql)")
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := configDirFunc(); err == nil {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	} else {
		fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
		os.Exit(1)
	}

	viper.SetEnvPrefix("OPSDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	stateDir, _ := configDirFunc()
	setDefaults(stateDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default value of every config key.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("server_url", "http://localhost:4000/graphql")
	viper.SetDefault("serve.port", 4000)
	viper.SetDefault("serve.cors_origin", "*")
	viper.SetDefault("serve.seed", true)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("client.timeout", "10s")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The store is created lazily, only by commands that talk to a server.
}

// newLogger builds the process logger from the log.* config keys.
func newLogger() (*slog.Logger, error) {
	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: viper.GetString("log.format"),
		Writer: os.Stderr,
	})
}

// getStore returns the shared store, a GraphQL client for server_url.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	endpoint := viper.GetString("server_url")
	if endpoint == "" {
		return nil, fmt.Errorf("server_url is not configured")
	}
	timeout := viper.GetDuration("client.timeout")
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}

	ui.VerboseLog("Using server %s", endpoint)
	dataStore = client.New(endpoint, client.WithTimeout(timeout))
	return dataStore, nil
}

// statePath returns a path inside the state directory.
func statePath(name string) string {
	return filepath.Join(viper.GetString("state_dir"), name)
}
