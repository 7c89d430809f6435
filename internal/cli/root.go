// Package cli implements the quotesync CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/config"
	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/reconcile"
	"github.com/rcliao/quotesync/internal/remote"
	"github.com/rcliao/quotesync/internal/store"
	"github.com/rcliao/quotesync/internal/ui"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	verbose    bool
	debug      bool
	logJSON    bool
	noColor    bool

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "quotesync",
	Short: "Quote collection with remote sync",
	Long: "A small quote collection kept in a local replica and reconciled with a remote source of record.\n" +
		"Remote changes win by default; conflicts can be reviewed and overridden.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		c, err := loadConfig()
		if err != nil {
			exitErr("load config", err)
		}
		cfg = c
		setupOutput()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Replica path (default: $QUOTESYNC_DB or ~/.quotesync/quotes.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $QUOTESYNC_CONFIG or ~/.quotesync/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log sync activity")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug details")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	RootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func loadConfig() (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if configPath != "" {
		c, err = config.LoadFromPath(configPath)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		c.Storage.Path = dbPath
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setupOutput() {
	opts := logging.DefaultOptions()
	opts.Level = logging.ParseLevel(cfg.Log.Level)
	opts.JSON = cfg.Log.JSON || logJSON
	if verbose {
		opts.Level = slog.LevelInfo
	}
	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	logging.SetDefault(logging.New(opts))

	if noColor || os.Getenv("NO_COLOR") != "" {
		ui.DisableColors()
	}
}

func textOutput() bool {
	return formatFlag == "text"
}

func newPersister() (store.Persister, error) {
	path := cfg.StoragePath()
	switch cfg.Storage.Driver {
	case config.DriverJSON:
		return store.NewJSONFilePersister(path)
	default:
		return store.NewSQLitePersister(path)
	}
}

func openStore(ctx context.Context) (*store.Store, error) {
	p, err := newPersister()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, p, store.Options{})
}

func newAdapter(ctx context.Context, r remote.Resolver) (remote.Adapter, error) {
	rc := cfg.Remote
	switch rc.Kind {
	case config.RemoteHTTP:
		return remote.NewHTTPAdapter(remote.HTTPConfig{
			BaseURL:  rc.BaseURL,
			Resource: rc.Resource,
			UserID:   rc.UserID,
			Limit:    rc.Limit,
			Window:   rc.Window,
			Category: rc.Category,
			Timeout:  rc.Timeout,
		}, r), nil
	case config.RemoteS3:
		return remote.NewS3Adapter(ctx, remote.S3Config{
			Bucket:          rc.S3.Bucket,
			Region:          rc.S3.Region,
			Endpoint:        rc.S3.Endpoint,
			AccessKeyID:     rc.S3.AccessKeyID,
			SecretAccessKey: rc.S3.SecretAccessKey,
			Prefix:          rc.S3.Prefix,
			UsePathStyle:    rc.S3.UsePathStyle,
			Category:        rc.Category,
		}, r)
	case config.RemoteNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown remote kind %q", rc.Kind)
	}
}

// openEngine opens the store and wires it to the configured remote. The
// caller closes the store.
func openEngine(ctx context.Context) (*reconcile.Engine, *store.Store, error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	a, err := newAdapter(ctx, s)
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("open remote: %w", err)
	}
	e := reconcile.NewEngine(s, a, reconcile.WithPushTimeout(cfg.Sync.PushTimeout))
	return e, s, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
