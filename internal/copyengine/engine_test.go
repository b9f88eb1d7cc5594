package copyengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

type recordingSink struct {
	started   []string
	completed []string
}

func (r *recordingSink) FileStarted(name string)            { r.started = append(r.started, name) }
func (r *recordingSink) FileCompleted(name string, _ int64) { r.completed = append(r.completed, name) }

func TestCopyProducesByteIdenticalFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	mustWrite(t, filepath.Join(src, "a.mkv"), "hello world")
	mustWrite(t, filepath.Join(src, "sub", "b.mkv"), "second file contents")

	files := []seraex.SourceFile{
		{AbsolutePath: filepath.Join(src, "a.mkv"), RelativePath: "a.mkv", Name: "a.mkv", SizeBytes: 11},
		{AbsolutePath: filepath.Join(src, "sub", "b.mkv"), RelativePath: filepath.Join("sub", "b.mkv"), Name: "b.mkv", SizeBytes: 20},
	}

	sink := &recordingSink{}
	engine := New()
	if err := engine.Copy(context.Background(), files, src, dst, sink, nil, false); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	for _, f := range files {
		want, err := os.ReadFile(f.AbsolutePath)
		if err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(filepath.Join(dst, f.RelativePath))
		if err != nil {
			t.Fatalf("reading copied file: %v", err)
		}
		if string(got) != string(want) {
			t.Errorf("copied content mismatch for %s", f.RelativePath)
		}
	}
	if len(sink.completed) != 2 {
		t.Errorf("expected 2 completions, got %d", len(sink.completed))
	}
}

func TestCopyDryRunDoesNoIO(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	mustWrite(t, filepath.Join(src, "a.mkv"), "data")

	files := []seraex.SourceFile{{AbsolutePath: filepath.Join(src, "a.mkv"), RelativePath: "a.mkv", Name: "a.mkv", SizeBytes: 4}}

	engine := New()
	if err := engine.Copy(context.Background(), files, src, dst, nil, nil, true); err != nil {
		t.Fatalf("Copy dry-run: %v", err)
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry-run should not have written anything, found %d entries", len(entries))
	}
}

func TestVerifyDetectsTruncation(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	mustWrite(t, filepath.Join(src, "episode.mkv"), "0123456789")
	mustWrite(t, filepath.Join(out, "episode.mkv"), "0123")

	result, err := Verify(src, out)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Verified {
		t.Error("expected verification to fail for truncated file")
	}
	if len(result.Missing) != 1 || result.Missing[0] != "episode.mkv" {
		t.Errorf("Missing = %v, want [episode.mkv]", result.Missing)
	}
}

func TestVerifyPassesOnEqualTrees(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	mustWrite(t, filepath.Join(src, "episode.mkv"), "full contents")
	mustWrite(t, filepath.Join(out, "episode.mkv"), "full contents")

	result, err := Verify(src, out)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Verified {
		t.Errorf("expected verification to pass, missing=%v", result.Missing)
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
