package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maruel/scenedata/datastore"
)

// PlayerProgress is the per-scene progress of the player.
type PlayerProgress struct {
	Level      int      `json:"level" jsonschema:"minimum=0"`
	Checkpoint string   `json:"checkpoint,omitempty"`
	Inventory  []string `json:"inventory,omitempty"`
	Score      int64    `json:"score"`
}

// Validate implements datastore.Datable.
func (p *PlayerProgress) Validate() error {
	if p.Level < 0 {
		return fmt.Errorf("level %d is negative", p.Level)
	}
	return nil
}

// AudioSettings holds the volume levels, each in [0, 1].
type AudioSettings struct {
	Master  float64 `json:"master" jsonschema:"minimum=0,maximum=1"`
	Music   float64 `json:"music" jsonschema:"minimum=0,maximum=1"`
	Effects float64 `json:"effects" jsonschema:"minimum=0,maximum=1"`
	Muted   bool    `json:"muted"`
}

// Validate implements datastore.Datable.
func (a *AudioSettings) Validate() error {
	for _, v := range []float64{a.Master, a.Music, a.Effects} {
		if v < 0 || v > 1 {
			return errors.New("volume out of [0, 1]")
		}
	}
	return nil
}

// builtin is a snapshot type the tool knows how to check.
type builtin struct {
	schema func() ([]byte, error)
	check  func(data []byte) error
}

func builtinOf[T datastore.Datable]() builtin {
	return builtin{
		schema: datastore.Schema[T],
		check: func(data []byte) error {
			_, err := datastore.Decode[T](data)
			return err
		},
	}
}

// builtins is keyed by snapshot name.
var builtins = map[string]builtin{
	"PlayerProgress": builtinOf[*PlayerProgress](),
	"AudioSettings":  builtinOf[*AudioSettings](),
}

// checkSnapshot decodes data as the built-in type called name. Other names
// are only required to be valid JSON.
func checkSnapshot(name string, data []byte) error {
	b, ok := builtins[name]
	if !ok {
		return nil
	}
	return b.check(data)
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [Type]",
		Short: "Print the JSON Schemas of the built-in snapshot types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := slices.Sorted(maps.Keys(builtins))
			if len(args) == 1 {
				if _, ok := builtins[args[0]]; !ok {
					return fmt.Errorf("unknown type %q, known: %s", args[0], strings.Join(names, ", "))
				}
				names = args
			}
			for _, name := range names {
				data, err := builtins[name].schema()
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
