package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/itchyny/gojq"
	"github.com/kaptinlin/jsonrepair"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maruel/scenedata/datastore"
)

const subdirHelp = `An empty <subdir> ("") selects default_scene from scenedata.json.`

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <subdir> <Type>",
		Short: "Print the snapshot path of a type",
		Long:  subdirHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			p, err := s.Path(args[1], args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [subdir]",
		Short: "List subdirectories, or the types saved in one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			var items []string
			if len(args) == 0 {
				items, err = s.Subdirs()
			} else {
				items, err = s.List(args[0])
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, item := range items {
				if _, err := fmt.Fprintln(w, item); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var query string
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show <subdir> <Type>",
		Short: "Print a snapshot",
		Long: `Print a snapshot, optionally filtered through a jq expression or
rendered as YAML.

` + subdirHelp,
		Example: `  scenedata show Level1 PlayerProgress
  scenedata show Level1 PlayerProgress --query '.inventory[0]'
  scenedata show Level1 PlayerProgress --yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			data, ok, err := s.ReadRaw(args[1], args[0])
			if err != nil {
				return err
			}
			if !ok {
				p, _ := s.Path(args[1], args[0])
				return fmt.Errorf("%w: %s", datastore.ErrNotFound, p)
			}
			if query != "" {
				if data, err = runQuery(cmd, query, data); err != nil {
					return err
				}
			}
			if asYAML {
				if data, err = toYAML(data); err != nil {
					return err
				}
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "jq expression applied to the snapshot")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Render as YAML")
	return cmd
}

// runQuery applies a jq expression and returns each result as indented JSON.
func runQuery(cmd *cobra.Command, expr string, data []byte) ([]byte, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: %w", datastore.ErrCorrupt, err)
	}
	var out bytes.Buffer
	iter := q.RunWithContext(cmd.Context(), input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq: %w", err)
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal jq result: %w", err)
		}
		out.Write(b)
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}

// toYAML converts JSON documents to block-style YAML, keeping key order.
func toYAML(data []byte) ([]byte, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	for {
		var n yaml.Node
		if err := dec.Decode(&n); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse snapshot: %w", err)
		}
		blockStyle(&n)
		if err := enc.Encode(&n); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return out.Bytes(), nil
}

// blockStyle drops the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func newPutCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "put <subdir> <Type>",
		Short: "Write a snapshot from a file or stdin",
		Long: `Write a snapshot, replacing any previous one. The input must be valid
JSON; it is re-indented before being written. Built-in types (see schema)
must also decode and validate.

` + subdirHelp,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			var data []byte
			if file == "" || file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file) //nolint:gosec // G304: file is an explicit CLI argument
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			if err := checkSnapshot(args[1], data); err != nil {
				return err
			}
			if err := s.WriteRaw(args[1], args[0], data); err != nil {
				return err
			}
			a.logger.Info("Saved snapshot", "subdir", args[0], "type", args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (default stdin)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <subdir> <Type>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			return s.DeleteRaw(args[1], args[0])
		},
	}
}

func newRepairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <subdir> <Type>",
		Short: "Repair a malformed snapshot in place",
		Long: `Repair a snapshot the game can no longer load: trailing commas,
missing quotes or brackets, truncated content. Valid snapshots are left
untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			data, ok, err := s.ReadRaw(args[1], args[0])
			if err != nil {
				return err
			}
			if !ok {
				p, _ := s.Path(args[1], args[0])
				return fmt.Errorf("%w: %s", datastore.ErrNotFound, p)
			}
			if json.Valid(data) {
				a.logger.Info("Snapshot is already valid", "subdir", args[0], "type", args[1])
				return nil
			}
			fixed, err := jsonrepair.JSONRepair(string(data))
			if err != nil {
				return fmt.Errorf("failed to repair %s: %w", args[1], err)
			}
			if err := checkSnapshot(args[1], []byte(fixed)); err != nil {
				return fmt.Errorf("repaired %s is still unusable: %w", args[1], err)
			}
			if err := s.WriteRaw(args[1], args[0], []byte(fixed)); err != nil {
				return err
			}
			a.logger.Info("Repaired snapshot", "subdir", args[0], "type", args[1])
			return nil
		},
	}
}
