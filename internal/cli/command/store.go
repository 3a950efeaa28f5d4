package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/graphite-go/internal/cli/output"
	"github.com/yndnr/graphite-go/internal/storage"
)

// StoreCommand returns the store subcommand group.
func StoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Storage backend maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "ping",
				Usage:  "Check that the backend answers",
				Action: storePing,
			},
			{
				Name:   "stats",
				Usage:  "Show backend statistics (badger only)",
				Action: storeStats,
			},
			{
				Name:   "gc",
				Usage:  "Reclaim value log space (badger only)",
				Action: storeGC,
			},
		},
	}
}

type pingView struct {
	Backend string        `json:"backend"`
	Latency time.Duration `json:"latency_ns"`
}

type gcView struct {
	Backend   string `json:"backend"`
	Reclaimed uint64 `json:"reclaimed_bytes"`
}

// maintainer returns the backend's maintenance interface, if it has one.
func (e *storeEnv) maintainer() (storage.Maintainer, error) {
	m, ok := e.kv.(storage.Maintainer)
	if !ok {
		return nil, fmt.Errorf("backend %q does not support maintenance", e.cfg.Storage.Backend)
	}
	return m, nil
}

func storePing(c *cli.Context) error {
	return withStore(c, func(env *storeEnv) error {
		start := time.Now()
		if err := env.kv.Ping(c.Context); err != nil {
			return fmt.Errorf("ping %s: %w", env.cfg.Storage.Backend, err)
		}
		return render(c, pingView{
			Backend: env.cfg.Storage.Backend,
			Latency: time.Since(start),
		})
	})
}

func storeStats(c *cli.Context) error {
	return withStore(c, func(env *storeEnv) error {
		m, err := env.maintainer()
		if err != nil {
			return err
		}
		stats, err := m.Stats(c.Context)
		if err != nil {
			return err
		}
		return render(c, stats)
	})
}

func storeGC(c *cli.Context) error {
	return withStore(c, func(env *storeEnv) error {
		m, err := env.maintainer()
		if err != nil {
			return err
		}

		var spinner *output.Spinner
		if ParseGlobalFlags(c).Output == string(output.FormatTable) {
			spinner = output.NewSpinner(c.App.ErrWriter, "Collecting value log garbage")
			spinner.Start()
		}

		reclaimed, err := m.GC(c.Context)
		if spinner != nil {
			if err != nil {
				spinner.Fail("Garbage collection failed")
			} else {
				spinner.Stop()
			}
		}
		if err != nil {
			return err
		}

		return render(c, gcView{Backend: env.cfg.Storage.Backend, Reclaimed: reclaimed})
	})
}
