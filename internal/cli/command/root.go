package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/graphite-go/internal/cli/output"
	"github.com/yndnr/graphite-go/internal/infra/buildinfo"
	"github.com/yndnr/graphite-go/internal/server/config"
	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/backend"
	"github.com/yndnr/graphite-go/internal/telemetry/logger"
	"github.com/yndnr/graphite-go/pkg/token"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "graphite-cli",
		Usage:   "Graphite store administration tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			UserCommand(),
			ProjectCommand(),
			StoreCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the graphite-server configuration file",
			EnvVars: []string{"GRAPHITE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log storage activity to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// render writes data to the app's writer in the selected format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(c.App.Writer, data)
}

// loadConfig loads the configuration and checks what the store needs.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg, err := config.Load(ParseGlobalFlags(c).Config)
	if err != nil {
		return nil, err
	}
	if err := config.VerifyStore(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr: warnings only, or everything with --verbose.
func newLogger(c *cli.Context) (*slog.Logger, error) {
	level := "warn"
	if ParseGlobalFlags(c).Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:  level,
		Format: "text",
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, err
	}
	return log.Slog(), nil
}

// storeEnv is an open store plus the configuration it was opened from.
type storeEnv struct {
	cfg    *config.ServerConfig
	kv     storage.KV
	logger *slog.Logger
}

// openStore loads the configuration and opens the backend it selects.
// The caller closes the returned env.
func openStore(c *cli.Context) (*storeEnv, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(c)
	if err != nil {
		return nil, err
	}

	kv, err := backend.Open(c.Context, cfg.BackendConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("store opened", "backend", cfg.Storage.Backend)

	return &storeEnv{cfg: cfg, kv: kv, logger: log}, nil
}

// sessions returns a session store keyed the way the server keys it.
func (e *storeEnv) sessions() (*storage.SessionStore, error) {
	hasher, err := token.NewHasher(e.cfg.TokenHashKey())
	if err != nil {
		return nil, fmt.Errorf("token hash key: %w", err)
	}
	return storage.NewSessionStore(e.kv,
		storage.WithHasher(hasher),
		storage.WithLogger(e.logger),
	), nil
}

// Close releases the store.
func (e *storeEnv) Close() error {
	return e.kv.Close()
}

// withStore opens the store, runs fn and closes the store again.
func withStore(c *cli.Context, fn func(*storeEnv) error) (err error) {
	env, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return fn(env)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
