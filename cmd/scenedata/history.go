package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maruel/scenedata/datastore"
)

var errNoHistory = errors.New("history is disabled; set history.enabled in scenedata.json or SCENEDATA_HISTORY=true")

func newHistoryCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history <subdir> <Type>",
		Short: "List the recorded revisions of a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := a.historyPath(args[0], args[1])
			if err != nil {
				return err
			}
			commits, err := a.repo.Log(rel, n)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range commits {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Hash[:12], c.Date.Local().Format(time.DateTime), c.Message, c.SaveID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 20, "Maximum number of revisions")
	cmd.AddCommand(&cobra.Command{
		Use:   "show <hash> <subdir> <Type>",
		Short: "Print a snapshot as it was at a revision",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := a.historyPath(args[1], args[2])
			if err != nil {
				return err
			}
			hash, err := a.resolveHash(args[0], rel)
			if err != nil {
				return err
			}
			data, err := a.repo.FileAt(hash, rel)
			if err != nil {
				return fmt.Errorf("no revision %s of %s: %w", args[0], rel, err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}

// historyPath opens the store and returns the snapshot path relative to the
// history repository.
func (a *app) historyPath(subdir, name string) (string, error) {
	s, err := a.openStore()
	if err != nil {
		return "", err
	}
	if a.repo == nil {
		return "", errNoHistory
	}
	p, err := s.Path(name, subdir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.DataDir(), p)
	if err != nil {
		return "", fmt.Errorf("failed to locate %s: %w", p, err)
	}
	return filepath.ToSlash(rel), nil
}

// resolveHash expands an abbreviated hash among the revisions of rel. HEAD
// and full hashes are returned as is.
func (a *app) resolveHash(prefix, rel string) (string, error) {
	if prefix == "HEAD" || len(prefix) == 40 {
		return prefix, nil
	}
	commits, err := a.repo.Log(rel, 0)
	if err != nil {
		return "", err
	}
	var found string
	for _, c := range commits {
		if len(c.Hash) >= len(prefix) && c.Hash[:len(prefix)] == prefix {
			if found != "" {
				return "", fmt.Errorf("ambiguous revision %q", prefix)
			}
			found = c.Hash
		}
	}
	if found == "" {
		return "", fmt.Errorf("%w: revision %q of %s", datastore.ErrNotFound, prefix, rel)
	}
	return found, nil
}
