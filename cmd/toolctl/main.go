// Command toolctl runs the web tools from a terminal: VIN decoding backed by
// the same cache and history as the service, plus the offline converters.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/webtools-service/internal/config"
	"github.com/couchcryptid/webtools-service/internal/observability"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags and the configuration they resolve to.
type rootOptions struct {
	output   string
	dbPath   string
	apiURL   string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "toolctl",
		Short:         "VIN decoding and everyday converters",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite file for the VIN cache and history (default from STORAGE_BACKEND/STORAGE_PATH)")
	root.PersistentFlags().StringVar(&opts.apiURL, "vin-api-url", "", "vPIC base URL (default from VIN_API_URL)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(
		newVINCmd(opts),
		newBoardFeetCmd(opts),
		newConvertCmd(opts),
		newDiscordCmd(opts),
		newSnowDayCmd(opts),
		newMarkdownCmd(opts),
	)
	return root
}

func (o *rootOptions) load() error {
	switch o.output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("invalid --output %q: want text, json or yaml", o.output)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.StorageBackend = config.BackendSQLite
		cfg.StoragePath = o.dbPath
	}
	if o.apiURL != "" {
		cfg.VINAPIURL = o.apiURL
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	return observability.NewLoggerTo(w, o.logLevel, "text")
}
