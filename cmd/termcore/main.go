// Command termcore drives the emulator core from a real terminal: it
// replays recorded byte streams through the grid and runs live
// commands on a pty with a tcell front end.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hnimtadd/termcore/logger"
)

var (
	logFile  string
	logLevel string
	logJSON  bool

	rootCmd = &cobra.Command{
		Use:               "termcore",
		Short:             "Terminal emulator core playground",
		Version:           "0.1.0",
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file (default: discard)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the shared logger from the persistent flags. Logs
// go to a file because stdout belongs to the screen.
func newLogger() (logger.Logger, func(), error) {
	levels := map[string]logger.Level{
		"debug": logger.DebugLevel,
		"info":  logger.InfoLevel,
		"warn":  logger.WarnLevel,
		"error": logger.ErrorLevel,
	}
	level, ok := levels[logLevel]
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level %q", logLevel)
	}

	var out io.Writer = io.Discard
	cleanup := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		cleanup = func() { f.Close() }
	}

	typ := logger.TypeText
	if logJSON {
		typ = logger.TypeJSON
	}
	return logger.New(logger.Options{Buffer: out, Level: level, Type: typ}), cleanup, nil
}
