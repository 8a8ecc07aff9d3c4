package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/scenedata/datastore"
)

// run executes the CLI against root and returns stdout.
func run(t *testing.T, root, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--root", root, "--log-level", "warn"}, args...))
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), err
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SCENEDATA_ROOT", "SCENEDATA_LOG_LEVEL", "SCENEDATA_DEFAULT_SCENE", "SCENEDATA_HISTORY"} {
		t.Setenv(k, "")
	}
}

func TestCLI(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	if _, err := run(t, root, `{"level":3,"inventory":["sword"]}`, "put", "Level1", "PlayerProgress"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	t.Run("path", func(t *testing.T) {
		got, err := run(t, root, "", "path", "Level1", "PlayerProgress")
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(root, "Data", "Level1", "PlayerProgress.json") + "\n"
		if got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	})

	t.Run("show", func(t *testing.T) {
		got, err := run(t, root, "", "show", "Level1", "PlayerProgress")
		if err != nil {
			t.Fatal(err)
		}
		want := "{\n  \"level\": 3,\n  \"inventory\": [\n    \"sword\"\n  ]\n}\n"
		if got != want {
			t.Errorf("show = %q, want %q", got, want)
		}
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			query string
			want  string
		}{
			{".level", "3\n"},
			{".inventory[0]", "\"sword\"\n"},
			{".inventory[]", "\"sword\"\n"},
			{".missing", "null\n"},
		}
		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				got, err := run(t, root, "", "show", "Level1", "PlayerProgress", "--query", tt.query)
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.want {
					t.Errorf("show --query %s = %q, want %q", tt.query, got, tt.want)
				}
			})
		}
		if _, err := run(t, root, "", "show", "Level1", "PlayerProgress", "--query", ".["); err == nil {
			t.Error("invalid query succeeded")
		}
	})

	t.Run("yaml", func(t *testing.T) {
		got, err := run(t, root, "", "show", "Level1", "PlayerProgress", "--yaml")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "level: 3\ninventory:\n") || !strings.Contains(got, "- sword\n") {
			t.Errorf("show --yaml = %q", got)
		}
	})

	t.Run("ls", func(t *testing.T) {
		if _, err := run(t, root, `{"master":1}`, "put", "Menus/Options", "AudioSettings"); err != nil {
			t.Fatal(err)
		}
		got, err := run(t, root, "", "ls")
		if err != nil {
			t.Fatal(err)
		}
		if got != "Level1\nMenus/Options\n" {
			t.Errorf("ls = %q", got)
		}
		got, err = run(t, root, "", "ls", "Level1")
		if err != nil {
			t.Fatal(err)
		}
		if got != "PlayerProgress\n" {
			t.Errorf("ls Level1 = %q", got)
		}
	})

	t.Run("put invalid", func(t *testing.T) {
		_, err := run(t, root, `{"level":`, "put", "Level1", "Broken")
		if !errors.Is(err, datastore.ErrCorrupt) {
			t.Errorf("put = %v, want ErrCorrupt", err)
		}
		if _, err := os.Stat(filepath.Join(root, "Data", "Level1", "Broken.json")); err == nil {
			t.Error("invalid input was written")
		}
	})

	t.Run("put checks built-in types", func(t *testing.T) {
		tests := []struct {
			typ, in string
			want    error
		}{
			{"PlayerProgress", `{"level":-1}`, datastore.ErrInvalid},
			{"PlayerProgress", `{"level":"one"}`, datastore.ErrCorrupt},
			{"PlayerProgress", `null`, datastore.ErrCorrupt},
			{"AudioSettings", `{"master":2}`, datastore.ErrInvalid},
		}
		for _, tt := range tests {
			_, err := run(t, root, tt.in, "put", "Checked", tt.typ)
			if !errors.Is(err, tt.want) {
				t.Errorf("put %s %s = %v, want %v", tt.typ, tt.in, err, tt.want)
			}
		}
		if _, err := os.Stat(filepath.Join(root, "Data", "Checked")); err == nil {
			t.Error("rejected snapshots were written")
		}
		// Unknown types only need to be JSON.
		if _, err := run(t, root, `{"level":-1}`, "put", "Checked", "Custom"); err != nil {
			t.Errorf("put Custom failed: %v", err)
		}
	})

	t.Run("traversal", func(t *testing.T) {
		for _, subdir := range []string{"../outside", "/abs", `a\b`} {
			_, err := run(t, root, `{}`, "put", subdir, "PlayerProgress")
			if !errors.Is(err, datastore.ErrInvalidSubdir) {
				t.Errorf("put %q = %v, want ErrInvalidSubdir", subdir, err)
			}
		}
	})

	t.Run("repair", func(t *testing.T) {
		p := filepath.Join(root, "Data", "Level2", "PlayerProgress.json")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(`{"level": 4, "score": 10,}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := run(t, root, "", "repair", "Level2", "PlayerProgress"); err != nil {
			t.Fatalf("repair failed: %v", err)
		}
		got, err := run(t, root, "", "show", "Level2", "PlayerProgress", "--query", ".score")
		if err != nil {
			t.Fatal(err)
		}
		if got != "10\n" {
			t.Errorf("score after repair = %q, want 10", got)
		}
	})

	t.Run("repair refuses invalid result", func(t *testing.T) {
		p := filepath.Join(root, "Data", "Level3", "PlayerProgress.json")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		broken := []byte(`{"level": -4,}`)
		if err := os.WriteFile(p, broken, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := run(t, root, "", "repair", "Level3", "PlayerProgress"); !errors.Is(err, datastore.ErrInvalid) {
			t.Errorf("repair = %v, want ErrInvalid", err)
		}
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, broken) {
			t.Errorf("file rewritten to %q", got)
		}
	})

	t.Run("rm", func(t *testing.T) {
		if _, err := run(t, root, "", "rm", "Level1", "PlayerProgress"); err != nil {
			t.Fatal(err)
		}
		_, err := run(t, root, "", "show", "Level1", "PlayerProgress")
		if !errors.Is(err, datastore.ErrNotFound) {
			t.Errorf("show after rm = %v, want ErrNotFound", err)
		}
		// Removing again is not an error.
		if _, err := run(t, root, "", "rm", "Level1", "PlayerProgress"); err != nil {
			t.Errorf("second rm failed: %v", err)
		}
	})

	t.Run("no scene", func(t *testing.T) {
		_, err := run(t, root, "", "path", "", "PlayerProgress")
		if !errors.Is(err, datastore.ErrNoScene) {
			t.Errorf("path with empty subdir = %v, want ErrNoScene", err)
		}
	})
}

func TestDefaultScene(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCENEDATA_DEFAULT_SCENE", "Forest")
	root := t.TempDir()
	got, err := run(t, root, "", "path", "", "AudioSettings")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "Data", "Forest", "AudioSettings.json") + "\n"
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestHistory(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	if _, err := run(t, root, "", "history", "Level1", "PlayerProgress"); !errors.Is(err, errNoHistory) {
		t.Fatalf("history with history disabled = %v, want errNoHistory", err)
	}

	t.Setenv("SCENEDATA_HISTORY", "true")
	for _, in := range []string{`{"level":1}`, `{"level":2}`} {
		if _, err := run(t, root, in, "put", "Level1", "PlayerProgress"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := run(t, root, "", "history", "Level1", "PlayerProgress")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 {
		t.Fatalf("history = %q, want 2 revisions", got)
	}
	if !strings.Contains(lines[0], "save Level1/PlayerProgress.json") {
		t.Errorf("history[0] = %q", lines[0])
	}

	older := strings.Fields(lines[1])[0]
	got, err = run(t, root, "", "history", "show", older, "Level1", "PlayerProgress")
	if err != nil {
		t.Fatal(err)
	}
	if got != "{\n  \"level\": 1\n}\n" {
		t.Errorf("history show %s = %q", older, got)
	}
	got, err = run(t, root, "", "history", "show", "HEAD", "Level1", "PlayerProgress")
	if err != nil {
		t.Fatal(err)
	}
	if got != "{\n  \"level\": 2\n}\n" {
		t.Errorf("history show HEAD = %q", got)
	}

	// A revision of another snapshot does not hold this one.
	if _, err := run(t, root, `{"master":1}`, "put", "Menu", "AudioSettings"); err != nil {
		t.Fatal(err)
	}
	got, err = run(t, root, "", "history", "-n", "1", "Menu", "AudioSettings")
	if err != nil {
		t.Fatal(err)
	}
	other := strings.Fields(got)[0]
	if _, err := run(t, root, "", "history", "show", other, "Level2", "PlayerProgress"); err == nil || !strings.Contains(err.Error(), "Level2/PlayerProgress.json") {
		t.Errorf("history show of a foreign revision = %v, want error naming the file", err)
	}
	if _, err := run(t, root, "", "history", "show", "0123456789abcdef0123456789abcdef01234567", "Level1", "PlayerProgress"); err == nil || !strings.Contains(err.Error(), "Level1/PlayerProgress.json") {
		t.Errorf("history show of an unknown hash = %v, want error naming the file", err)
	}
}

func TestSchema(t *testing.T) {
	clearEnv(t)
	got, err := run(t, t.TempDir(), "", "schema")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"title": "PlayerProgress"`, `"title": "AudioSettings"`, `"inventory"`, `"maximum": 1`} {
		if !strings.Contains(got, want) {
			t.Errorf("schema missing %s", want)
		}
	}

	got, err = run(t, t.TempDir(), "", "schema", "AudioSettings")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "PlayerProgress") {
		t.Errorf("schema AudioSettings printed other types:\n%s", got)
	}
	if _, err := run(t, t.TempDir(), "", "schema", "Nope"); err == nil {
		t.Error("schema of an unknown type succeeded")
	}
}

func TestVersion(t *testing.T) {
	clearEnv(t)
	got, err := run(t, t.TempDir(), "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "scenedata ") || !strings.Contains(got, "revision:") {
		t.Errorf("version = %q", got)
	}
	var buf bytes.Buffer
	v := version{Module: "v1.2.3", Go: "go1.25.5", Revision: "abc", Modified: true}
	if err := v.write(&buf); err != nil {
		t.Fatal(err)
	}
	want := "scenedata v1.2.3\n  go:       go1.25.5\n  revision: abc (modified)\n"
	if buf.String() != want {
		t.Errorf("write() = %q, want %q", buf.String(), want)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		if _, err := newLogger(&buf, level); err != nil {
			t.Errorf("newLogger(%q) failed: %v", level, err)
		}
	}
	if _, err := newLogger(&buf, "verbose"); err == nil {
		t.Error("newLogger(verbose) succeeded")
	}
	l, _ := newLogger(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "path", "")
	if got := buf.String(); strings.Contains(got, "hidden") || !strings.Contains(got, "shown") || strings.Contains(got, "path=") {
		t.Errorf("log output = %q", got)
	}
}
