// Command esindex writes, dumps and inspects ES812 segments and the
// commits of a shard directory.
package main

import (
	"fmt"
	"os"

	"github.com/ironsweet/esengine/core/engine"
	"github.com/ironsweet/esengine/core/store"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Per-invocation state set up by the app's Before hook.
type env struct {
	config *engine.Config
	logger *logrus.Logger
}

func newApp() *cli.App {
	e := &env{}
	return &cli.App{
		Name:  "esindex",
		Usage: "write and inspect ES812 postings and commits",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "engine configuration `FILE` (yaml)",
				EnvVars: []string{"ESINDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides the configured log level",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := engine.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if level := c.String("log-level"); level != "" {
				cfg.LogLevel = level
				if err = cfg.Validate(); err != nil {
					return err
				}
			}
			e.config = cfg
			e.logger = logrus.New()
			e.logger.SetOutput(c.App.ErrWriter)
			e.logger.SetLevel(cfg.Level())
			return nil
		},
		Commands: []*cli.Command{
			writeCommand(e),
			dumpCommand(e),
			commitsCommand(e),
		},
	}
}

var dirFlag = &cli.StringFlag{
	Name:     "dir",
	Aliases:  []string{"d"},
	Usage:    "shard index `DIR`",
	Required: true,
}

func openDirectory(c *cli.Context) (*store.FSDirectory, error) {
	return store.OpenFSDirectory(c.String(dirFlag.Name))
}
