// Package cli implements the ismsdoc command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/config"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags. Set flags override the environment.
type rootOptions struct {
	profile    string
	tableStyle string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "ismsdoc",
		Short:         "Generate and import controlled ISMS documents",
		Long:          "Render document models into Word templates, import existing documents back into models, and edit document properties.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "Document profile: standard or extended (default: $PROFILE or standard)")
	root.PersistentFlags().StringVar(&opts.tableStyle, "table-style", "", "Table style for created tables (default: $DEFAULT_TABLE_STYLE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		newValidateCmd(opts),
		newGenerateCmd(opts),
		newImportCmd(opts),
		newInitCmd(opts),
		newPropsCmd(opts),
		newTablesCmd(opts),
	)
	return root
}

// Execute runs the command tree and reports a failure on stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// config loads the environment and applies the flags on top.
func (o *rootOptions) config() (config.Config, error) {
	cfg := config.Load()
	if o.profile != "" {
		cfg.Profile = o.profile
	}
	if o.tableStyle != "" {
		cfg.DefaultTableStyle = o.tableStyle
	}
	if _, err := doctree.ProfileByName(cfg.Profile); err != nil {
		return cfg, fmt.Errorf("--profile: %w", err)
	}
	return cfg, nil
}

// logger writes JSON records to the command's stderr.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
