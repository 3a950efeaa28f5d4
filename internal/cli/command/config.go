package command

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/graphite-go/internal/cli/output"
	"github.com/yndnr/graphite-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"cfg"},
		Usage:   "Inspect the server configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the merged configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:  "validate",
				Usage: "Check the configuration the server would start with",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "store-only",
						Usage: "Skip listener checks (for hosts that only run graphite-cli)",
					},
				},
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := config.Load(ParseGlobalFlags(c).Config)
	if err != nil {
		return err
	}

	flat := flattenConfig(config.Sanitize(cfg))

	if ParseGlobalFlags(c).Output == string(output.FormatTable) {
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		table := &output.Table{Headers: []string{"KEY", "VALUE"}}
		for _, k := range keys {
			table.AddRow(k, fmt.Sprint(flat[k]))
		}
		return render(c, table)
	}
	return render(c, maps.Unflatten(flat, "."))
}

func configValidate(c *cli.Context) error {
	cfg, err := config.Load(ParseGlobalFlags(c).Config)
	if err != nil {
		return err
	}

	verify := config.Verify
	if c.Bool("store-only") {
		verify = config.VerifyStore
	}
	if err := verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintln(c.App.Writer, "configuration is valid")
	return nil
}

// flattenConfig maps every leaf of cfg to its dotted koanf key, the
// same keys a config file or GRAPHITE_ variable sets. Durations are
// shown the way they are written.
func flattenConfig(cfg *config.ServerConfig) map[string]any {
	flat := map[string]any{}
	flattenValue("", reflect.ValueOf(cfg).Elem(), flat)
	return flat
}

func flattenValue(prefix string, v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" || !field.IsExported() {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		fv := v.Field(i)
		switch val := fv.Interface().(type) {
		case time.Duration:
			out[key] = val.String()
		default:
			if fv.Kind() == reflect.Struct {
				flattenValue(key, fv, out)
				continue
			}
			out[key] = val
		}
	}
}
