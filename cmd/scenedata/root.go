package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maruel/scenedata/datastore"
	"github.com/maruel/scenedata/internal/config"
	"github.com/maruel/scenedata/internal/history"
	"github.com/maruel/scenedata/savegame"
)

// app carries the state shared by every command.
type app struct {
	root     string
	logLevel string

	env    config.Env
	logger *slog.Logger
	game   *savegame.Game
	repo   *history.Repo
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "scenedata",
		Short: "Inspect and edit per-scene JSON snapshots",
		Long: `scenedata works on the snapshots a game saves as

  <root>/Data/<scene>/<Type>.json

Settings are read from <root>/scenedata.json (created with defaults),
SCENEDATA_* environment variables and .env files in the current directory
and in the root. Explicit flags win over the environment, which wins over
the file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.PersistentFlags().StringVar(&a.root, "root", "./save", "Data root directory")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newPathCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newPutCmd(a),
		newRemoveCmd(a),
		newRepairCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the environment and installs the logger. The store itself is
// opened lazily by the commands that need it.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	e, err := config.ParseEnv()
	if err != nil {
		return err
	}
	if !flags.Changed("root") && e.Root != "" {
		a.root = e.Root
	}
	if err := config.LoadDotEnv(filepath.Join(a.root, ".env")); err != nil {
		return err
	}
	// The root .env may set more variables.
	if e, err = config.ParseEnv(); err != nil {
		return err
	}
	if !flags.Changed("log-level") && e.LogLevel != "" {
		a.logLevel = e.LogLevel
	}
	a.env = e
	a.logger, err = newLogger(cmd.ErrOrStderr(), a.logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)
	return nil
}

// openStore opens the data root, with its history when enabled.
func (a *app) openStore() (*datastore.Store, error) {
	if a.game != nil {
		return a.game.Store, nil
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	g, err := savegame.Open(a.root, &savegame.Options{Logger: a.logger, Env: &a.env})
	if err != nil {
		return nil, err
	}
	a.game = g
	a.repo = g.History()
	return g.Store, nil
}
