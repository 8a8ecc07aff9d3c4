// Package history keeps every saved snapshot in a git repository so earlier
// revisions can be listed and read back.
//
// It uses go-git, so no git binary is needed.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/maruel/ksid"
)

// maxLog bounds the number of commits Log returns.
const maxLog = 1000

// Commit describes one recorded revision.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"` // Subject line.
	SaveID  string    `json:"save_id,omitempty"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// Repo records snapshot files in a git repository rooted at a data
// directory. It implements datastore.Recorder.
type Repo struct {
	dir   string
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex
}

// Open opens the repository at dir, initializing it when needed.
//
// name and email are used as commit author.
func Open(dir, name, email string) (*Repo, error) {
	if name == "" || email == "" {
		return nil, errors.New("author name and email are required")
	}
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = initRepo(dir, name, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history in %s: %w", dir, err)
	}
	return &Repo{dir: dir, name: name, email: email, repo: repo}, nil
}

func initRepo(dir, name, email string) (*gogit.Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, err
	}
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		return nil, err
	}
	cfg, err := repo.Config()
	if err != nil {
		return nil, err
	}
	cfg.User.Name = name
	cfg.User.Email = email
	return repo, repo.SetConfig(cfg)
}

// Dir returns the repository working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// Record stages files, given relative to Dir and slash separated, and
// commits them if their content changed. Deleted files are staged as
// removals.
func (r *Repo) Record(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	verb := "save"
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(r.dir, filepath.FromSlash(f))); errors.Is(err, fs.ErrNotExist) {
			verb = "delete"
			if _, err := w.Remove(f); err != nil && !errors.Is(err, index.ErrEntryNotFound) {
				return fmt.Errorf("failed to stage removal of %s: %w", f, err)
			}
			continue
		}
		if _, err := w.Add(f); err != nil {
			return fmt.Errorf("failed to stage %s: %w", f, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	changed := false
	for _, f := range files {
		if st := status.File(f).Staging; st != gogit.Unmodified && st != gogit.Untracked {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	subject := verb + " " + files[0]
	if len(files) > 1 {
		subject = fmt.Sprintf("%s %d snapshots", verb, len(files))
	}
	msg := fmt.Sprintf("%s\n\nSave-Id: %s\n", subject, ksid.NewID().String())
	sig := &object.Signature{Name: r.name, Email: r.email, When: time.Now()}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Log returns up to n commits touching file, newest first. An empty file
// lists every commit. A repository without commits has no history.
func (r *Repo) Log(file string, n int) ([]*Commit, error) {
	if n <= 0 || n > maxLog {
		n = maxLog
	}
	opts := &gogit.LogOptions{}
	if file != "" {
		opts.FileName = &file
	}
	iter, err := r.repo.Log(opts)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %q: %w", file, err)
	}
	defer iter.Close()

	var commits []*Commit
	err = iter.ForEach(func(c *object.Commit) error {
		subject, body, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			SaveID:  trailer(body, "Save-Id"),
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
		if len(commits) == n {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %q: %w", file, err)
	}
	return commits, nil
}

// FileAt returns the content of file at rev, a commit hash or "HEAD".
func (r *Repo) FileAt(rev, file string) ([]byte, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	c, err := r.repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	f, err := c.File(file)
	if err != nil {
		return nil, fmt.Errorf("%s at %s: %w", file, rev, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %s: %w", file, rev, err)
	}
	return []byte(content), nil
}

func trailer(body, key string) string {
	for line := range strings.SplitSeq(body, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), key+": "); ok {
			return v
		}
	}
	return ""
}
