package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRenameEpisodeActivityCopiesAndSkipsOnRepeat(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "source", "e01.mkv")
	mustWriteFile(t, srcPath, []byte("video bytes"))

	in := RenameEpisodeInput{
		SourcePath:    srcPath,
		SeriesRoot:    root,
		ShowName:      "Show Name",
		SeasonNumber:  1,
		EpisodeNumber: 1,
		EpisodeTitle:  "The Beginning",
	}

	out, err := RenameEpisodeActivity(context.Background(), in)
	if err != nil {
		t.Fatalf("RenameEpisodeActivity: %v", err)
	}
	if out.Skipped {
		t.Fatalf("expected first call to not be skipped")
	}
	data, err := os.ReadFile(out.NewPath)
	if err != nil {
		t.Fatalf("read new path: %v", err)
	}
	if string(data) != "video bytes" {
		t.Fatalf("unexpected content: %q", data)
	}

	out2, err := RenameEpisodeActivity(context.Background(), in)
	if err != nil {
		t.Fatalf("second RenameEpisodeActivity: %v", err)
	}
	if !out2.Skipped {
		t.Fatalf("expected second call to be skipped as idempotent")
	}
	if out2.NewPath != out.NewPath {
		t.Fatalf("expected stable new path, got %q vs %q", out2.NewPath, out.NewPath)
	}
}

func TestRenameEpisodeActivityDryRunTouchesNoFiles(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "source", "e01.mkv")
	mustWriteFile(t, srcPath, []byte("video bytes"))

	out, err := RenameEpisodeActivity(context.Background(), RenameEpisodeInput{
		SourcePath:    srcPath,
		SeriesRoot:    root,
		ShowName:      "Show Name",
		SeasonNumber:  1,
		EpisodeNumber: 1,
		EpisodeTitle:  "The Beginning",
		DryRun:        true,
	})
	if err != nil {
		t.Fatalf("RenameEpisodeActivity dry run: %v", err)
	}
	if out.NewPath == "" {
		t.Fatalf("expected a planned new path even in dry run")
	}
	if _, err := os.Stat(out.NewPath); !os.IsNotExist(err) {
		t.Fatalf("expected dry run to perform no I/O, but %s exists", out.NewPath)
	}
}

func TestStructureActivityDryRunTouchesNoFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "_episodes", "Season 01", "ep1.mkv"), []byte("ep1"))

	out, err := StructureActivity(context.Background(), StructureInput{
		SeriesRoot: root,
		ShowName:   "Show Name",
		DryRun:     true,
	})
	if err != nil {
		t.Fatalf("StructureActivity dry run: %v", err)
	}
	if out.EpisodesMoved != 0 {
		t.Fatalf("expected 0 episodes moved in dry run, got %d", out.EpisodesMoved)
	}
	if _, err := os.Stat(out.StructuredRoot); !os.IsNotExist(err) {
		t.Fatalf("expected dry run to perform no I/O, but %s exists", out.StructuredRoot)
	}
	if _, err := os.Stat(filepath.Join(root, "_episodes", "Season 01", "ep1.mkv")); err != nil {
		t.Fatalf("expected source episode to remain untouched: %v", err)
	}
}

func TestStructureActivityMovesEpisodesAndCopiesExtras(t *testing.T) {
	root := t.TempDir()
	episodesRoot := filepath.Join(root, "_episodes", "Season 01")
	mustWriteFile(t, filepath.Join(episodesRoot, "ep1.mkv"), []byte("ep1"))
	mustWriteFile(t, filepath.Join(episodesRoot, "ep2.mkv"), []byte("ep2"))

	extraSrc := filepath.Join(root, "disc1", "bonus.mkv")
	mustWriteFile(t, extraSrc, []byte("bonus"))

	out, err := StructureActivity(context.Background(), StructureInput{
		SeriesRoot: root,
		ShowName:   "Show Name",
		ExtraFiles: []seraex.SourceFile{{AbsolutePath: extraSrc, RelativePath: "disc1/bonus.mkv", Name: "bonus.mkv"}},
	})
	if err != nil {
		t.Fatalf("StructureActivity: %v", err)
	}
	if out.EpisodesMoved != 2 {
		t.Fatalf("expected 2 episodes moved, got %d", out.EpisodesMoved)
	}
	if out.ExtrasCopied != 1 {
		t.Fatalf("expected 1 extra copied, got %d", out.ExtrasCopied)
	}
	if _, err := os.Stat(filepath.Join(episodesRoot, "ep1.mkv")); !os.IsNotExist(err) {
		t.Fatalf("expected source episode to be moved away")
	}
	if _, err := os.Stat(filepath.Join(out.StructuredRoot, "Season 01", "ep1.mkv")); err != nil {
		t.Fatalf("expected moved episode at destination: %v", err)
	}
	if _, err := os.Stat(extraSrc); err != nil {
		t.Fatalf("expected extra source to remain (copy, not move): %v", err)
	}
	if _, err := os.Stat(filepath.Join(out.StructuredRoot, "Extras", "disc1", "bonus.mkv")); err != nil {
		t.Fatalf("expected extra copied to destination: %v", err)
	}
}

func TestCaptureStagingTreeActivitySortsDirsBeforeFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Season 01", "b.mkv"), []byte("b"))
	mustWriteFile(t, filepath.Join(root, "Season 01", "a.mkv"), []byte("a"))
	mustWriteFile(t, filepath.Join(root, "zzz.nfo"), []byte("info"))

	tree, err := CaptureStagingTreeActivity(context.Background(), CaptureStagingTreeInput{Root: root})
	if err != nil {
		t.Fatalf("CaptureStagingTreeActivity: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected 2 top-level entries, got %d", len(tree))
	}
	if tree[0].Type != seraex.TreeDir || tree[0].Name != "Season 01" {
		t.Fatalf("expected dir first, got %+v", tree[0])
	}
	if tree[1].Type != seraex.TreeFile || tree[1].Name != "zzz.nfo" {
		t.Fatalf("expected file second, got %+v", tree[1])
	}
	if len(tree[0].Children) != 2 || tree[0].Children[0].Name != "a.mkv" {
		t.Fatalf("expected alphabetical children, got %+v", tree[0].Children)
	}
}

func TestCleanupActivityRemovesPathsAndSkipsBlank(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "to-remove")
	mustWriteFile(t, filepath.Join(target, "file.txt"), []byte("x"))

	if err := CleanupActivity(context.Background(), CleanupInput{Paths: []string{target, ""}}); err != nil {
		t.Fatalf("CleanupActivity: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("expected target to be removed")
	}
}

func TestListFilesActivityWalksRecursively(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.mkv"), []byte("aaaa"))
	mustWriteFile(t, filepath.Join(root, "sub", "b.srt"), []byte("bb"))

	out, err := ListFilesActivity(context.Background(), ListFilesInput{Root: root})
	if err != nil {
		t.Fatalf("ListFilesActivity: %v", err)
	}
	if len(out.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(out.Files))
	}
	var sawSub bool
	for _, f := range out.Files {
		if f.RelativePath == filepath.Join("sub", "b.srt") {
			sawSub = true
			if f.SizeBytes != 2 {
				t.Fatalf("expected size 2, got %d", f.SizeBytes)
			}
		}
	}
	if !sawSub {
		t.Fatalf("expected nested file to be listed with its relative path")
	}
}

func TestListSubdirectoriesActivityReturnsOnlyDirsSorted(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "Disc 2", ".keep"), nil)
	mustWriteFile(t, filepath.Join(root, "Disc 1", ".keep"), nil)
	mustWriteFile(t, filepath.Join(root, "readme.txt"), []byte("x"))

	names, err := ListSubdirectoriesActivity(context.Background(), ListSubdirectoriesInput{Root: root})
	if err != nil {
		t.Fatalf("ListSubdirectoriesActivity: %v", err)
	}
	if len(names) != 2 || names[0] != "Disc 1" || names[1] != "Disc 2" {
		t.Fatalf("unexpected names: %v", names)
	}
}
