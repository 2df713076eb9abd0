// Package cmd wires the command-line surface: call, list, describe,
// serve, palette and docs.
package cmd

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zjrosen/dispatch/internal/config"
	"github.com/zjrosen/dispatch/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version    = "dev"
	cfgFile    string
	cfg        config.Config
	cfgUsed    string
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:     "dispatch",
	Short:   "A command registry with CLI, MCP and palette surfaces",
	Long: `dispatch executes commands through a single registry pipeline so a
command behaves identically whether it is called from the CLI, an MCP
client, an in-process caller or the interactive palette.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .dispatch/config.yaml, then ~/.config/dispatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-file", "",
		"log file path (overrides config)")
	rootCmd.PersistentFlags().String("store", "",
		"todo store backend: memory or sqlite (overrides config)")
}

func initConfig() {
	loaded, used, err := config.Load(cfgFile)
	if err != nil {
		cobra.CheckErr(err)
	}

	// First run with no config anywhere: write the commented default
	// next to the working directory, like an init would.
	if used == "" && cfgFile == "" {
		if writeErr := config.WriteDefaultConfig(config.LocalConfigPath); writeErr == nil {
			if reloaded, _, reloadErr := config.Load(config.LocalConfigPath); reloadErr == nil {
				loaded = reloaded
				used = config.LocalConfigPath
			}
		}
		// If the write fails, run on defaults.
	}
	cfg = loaded
	cfgUsed = used

	applyFlagOverrides()
	initLogging()
}

func applyFlagOverrides() {
	if logFile, _ := rootCmd.PersistentFlags().GetString("log-file"); logFile != "" {
		cfg.Log.File = logFile
	}
	if backend, _ := rootCmd.PersistentFlags().GetString("store"); backend != "" {
		cfg.Store.Backend = backend
	}
}

func initLogging() {
	if cfg.Log.File == "" {
		log.SetEnabled(false)
		return
	}
	cleanup, err := log.Init(cfg.Log.File)
	if err != nil {
		// Logging is never fatal for the CLI.
		return
	}
	logCleanup = cleanup
	log.SetMinLevel(logLevel(cfg.Log.Level))
}

func logLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logCleanup != nil {
			logCleanup()
		}
	}()
	err := rootCmd.Execute()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
