// Package cmd implements the ingest command line tool.
package cmd

import (
	"log/slog"

	"github.com/JonMunkholm/reportload/internal/config"
	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/JonMunkholm/reportload/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands.
type app struct {
	cfg       *config.Config
	logLevel  string
	logFormat string
	logger    *slog.Logger
}

// NewRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ingest",
		Short: "Load brokerage report and master spreadsheets",
		Long: `Ingest loads one .xlsx, .xls or .csv export as a registered report or
master type and prints the run result as JSON.

Examples:
  ingest types
  ingest load --type client_master --file clients.xlsx
  ingest load --type risk_report --file risk.csv --stream
  ingest reset --type risk_report --yes
  ingest load --dry-run --seed branch_master=branches.csv \
    --seed client_master=clients.csv --type risk_report --file risk.xlsx`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Logging.Level = a.logLevel
			}
			if a.logFormat != "" {
				cfg.Logging.Format = a.logFormat
			}
			a.cfg = cfg
			// stdout is reserved for the JSON result.
			a.logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text, json (default from LOG_FORMAT)")

	root.AddCommand(newLoadCmd(a))
	root.AddCommand(newTypesCmd())
	root.AddCommand(newResetCmd(a))
	return root
}

// ErrorText renders a command error for the terminal. Errors with a known
// support code get the user message on a second line.
func ErrorText(err error) string {
	text := "Error: " + err.Error()
	if core.MapError(err).Code != "ERR000" {
		text += "\n" + core.FormatUserError(err)
	}
	return text
}
