package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dsh-go/internal/storage"
)

// ConfigCommand returns the config command.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change the stored configuration",
		Description: `Without options the stored configuration is printed with the API key
masked. Given values are saved to the credential store and used by tf and
mc whenever the matching flag is omitted.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tenant",
				Aliases: []string{"t"},
				Usage:   "store the tenant name",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Aliases: []string{"k"},
				Usage:   "store the API key",
			},
			&cli.StringFlag{
				Name:    "domain",
				Aliases: []string{"d"},
				Usage:   "store the platform domain",
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "store the broker port",
			},
			&cli.StringFlag{
				Name:    "websocket",
				Aliases: []string{"w"},
				Usage:   "store whether to use websockets: true or false",
			},
			&cli.BoolFlag{
				Name:    "show-all",
				Aliases: []string{"s"},
				Usage:   "print the configuration including the API key",
			},
			&cli.BoolFlag{
				Name:  "clean-secret-store",
				Usage: "remove the stored configuration",
			},
		},
		Action: configAction,
	}
}

// configFlags maps flags to configuration fields, in the order they are
// applied.
var configFlags = []struct {
	flag  string
	field string
}{
	{"tenant", storage.FieldTenant},
	{"api-key", storage.FieldAPIKey},
	{"domain", storage.FieldDomain},
	{"port", storage.FieldPort},
	{"websocket", storage.FieldWebsocket},
}

func configAction(c *cli.Context) error {
	rt := runtimeFrom(c)
	ctx := c.Context

	if c.Bool("clean-secret-store") {
		if err := rt.Provider.Clean(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "Secret store cleaned")
		return nil
	}

	var changed []string
	for _, f := range configFlags {
		if c.IsSet(f.flag) {
			changed = append(changed, f.field)
		}
	}
	if len(changed) > 0 {
		err := rt.Provider.Update(ctx, func(cfg storage.Config) (storage.Config, error) {
			for _, f := range configFlags {
				if !c.IsSet(f.flag) {
					continue
				}
				var err error
				if cfg, err = cfg.With(f.field, c.String(f.flag)); err != nil {
					return cfg, err
				}
			}
			return cfg, nil
		})
		if err != nil {
			return err
		}
		rt.Log.Info("configuration updated", "fields", changed, "store", rt.Provider.Name())
		for _, field := range changed {
			fmt.Fprintf(c.App.Writer, "%s updated\n", field)
		}
	}

	cfg, err := rt.Provider.Get(ctx)
	if err != nil {
		return err
	}
	switch {
	case c.Bool("show-all"):
		fmt.Fprintln(c.App.Writer, cfg.Reveal())
	case len(changed) == 0:
		fmt.Fprintln(c.App.Writer, cfg.String())
	}
	return nil
}
