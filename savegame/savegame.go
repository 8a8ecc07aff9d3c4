// Package savegame opens a data root the way a game host does: settings from
// scenedata.json and SCENEDATA_* variables, optional history, and throttled
// savers for values that change every frame.
//
//	g, err := savegame.Open("save", &savegame.Options{Scene: tracker})
//	...
//	err = datastore.Save(g.Store, progress, "")
//	saver := savegame.NewSaver[*Camera](g, "")
package savegame

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maruel/scenedata/autosave"
	"github.com/maruel/scenedata/datastore"
	"github.com/maruel/scenedata/internal/config"
	"github.com/maruel/scenedata/internal/history"
)

// Options configures Open. The zero value is usable.
type Options struct {
	// Scene reports the active scene. When it reports "", default_scene from
	// scenedata.json is used.
	Scene datastore.SceneProvider
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Env replaces the process environment when set.
	Env *config.Env
}

// Game is an opened data root.
type Game struct {
	// Store reads and writes the snapshots.
	Store *datastore.Store

	cfg  *config.Config
	repo *history.Repo
}

// Open loads root/scenedata.json, creating it with defaults when missing,
// applies the SCENEDATA_* overrides and opens the store.
func Open(root string, opts *Options) (*Game, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var e config.Env
	if opts.Env != nil {
		e = *opts.Env
	} else {
		var err error
		if e, err = config.ParseEnv(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(e); err != nil {
		return nil, err
	}

	g := &Game{cfg: cfg}
	so := &datastore.Options{
		Scene:    sceneOf(opts.Scene, cfg.DefaultScene),
		Logger:   logger,
		FileMode: os.FileMode(cfg.FileMode),
		DirMode:  os.FileMode(cfg.DirMode),
	}
	if cfg.History.Enabled {
		if g.repo, err = history.Open(filepath.Join(root, datastore.DataDirName), cfg.History.AuthorName, cfg.History.AuthorEmail); err != nil {
			return nil, err
		}
		so.Recorder = g.repo
	}
	if g.Store, err = datastore.New(root, so); err != nil {
		return nil, err
	}
	logger.Debug("Opened data root", "root", g.Store.Root(), "history", cfg.History.Enabled, "default_scene", cfg.DefaultScene)
	return g, nil
}

// Config returns the effective settings.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// History returns the snapshot history, or nil when disabled.
func (g *Game) History() *history.Repo {
	return g.repo
}

// AutosaveInterval returns the minimum delay between two throttled saves.
func (g *Game) AutosaveInterval() time.Duration {
	return time.Duration(g.cfg.AutosaveInterval)
}

// NewSaver returns a saver writing T to subdir at most once per
// autosave_interval.
func NewSaver[T datastore.Datable](g *Game, subdir string) *autosave.Saver[T] {
	return autosave.New[T](g.Store, subdir, g.AutosaveInterval())
}

// sceneOf combines the host's scene with the configured default.
func sceneOf(p datastore.SceneProvider, def string) datastore.SceneProvider {
	switch {
	case p == nil && def == "":
		return nil
	case p == nil:
		return datastore.StaticScene(def)
	case def == "":
		return p
	default:
		return defaultScene{p: p, def: def}
	}
}

type defaultScene struct {
	p   datastore.SceneProvider
	def string
}

func (d defaultScene) ActiveScene() string {
	if s := d.p.ActiveScene(); s != "" {
		return s
	}
	return d.def
}
