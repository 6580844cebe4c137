package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/sage/internal/logging"
)

var version = "dev"

var (
	noColor bool
	remote  bool
)

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Command understanding for a voice assistant",
	Long: `sage decides whether an utterance is a command or small talk, extracts
what it can from it and learns new vocabulary on request.

Query commands load the corpora in-process unless --remote is given, in which
case they are sent to the server started with "sage serve".`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable coloured output")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "talk to a running sage server")

	rootCmd.AddCommand(understandCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(intentCmd)
	rootCmd.AddCommand(synonymCmd)
	rootCmd.AddCommand(patternCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	logging.Preinit()
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

