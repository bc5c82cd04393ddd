package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/soldiom/internal/config"
	"github.com/PabloGalante/soldiom/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "soldiom",
	Short: "Role-based research assistant with grounded, streamed answers",
	Long: `soldiom talks to Gemini with Google Search grounding, streams the reply
as structured markdown and keeps the sources it cited.

Examples:
  soldiom serve                              # HTTP API on $SOLDIOM_PORT
  soldiom chat --role engineer               # interactive terminal chat
  soldiom tool translate --to fra_Latn "good morning"
  echo "# Title" | soldiom structure         # print render nodes as JSON`,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var (
	cfg       *config.Config
	logLevel  string
	logFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides SOLDIOM_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or text (overrides SOLDIOM_LOG_FORMAT)")

	rootCmd.AddCommand(serveCmd, chatCmd, toolCmd, structureCmd)
}

// loadConfig reads configuration and sets up logging. Commands that need
// the backends call it from PreRunE.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	observability.Configure(os.Stderr, c.LogLevel, c.LogFormat)
	cfg = c
	return nil
}
