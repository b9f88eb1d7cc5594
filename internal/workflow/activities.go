package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Reclyptor/SERAEX/internal/naming"
	"github.com/Reclyptor/SERAEX/internal/seraex"
)

// RenameEpisodeInput is the input to the RenameEpisode activity.
type RenameEpisodeInput struct {
	SourcePath    string `json:"source_path"`
	SeriesRoot    string `json:"series_root"`
	ShowName      string `json:"show_name"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	EpisodeTitle  string `json:"episode_title"`
	DryRun        bool   `json:"dry_run"`
}

// RenameEpisodeOutput is the output of the RenameEpisode activity.
type RenameEpisodeOutput struct {
	NewPath string `json:"new_path"`
	Skipped bool   `json:"skipped"`
}

// RenameEpisodeActivity copies (never moves) the matched source file into
// <series_root>/_episodes/Season <ss>/<ShowName> - S<ss>E<ee>[ - <Title>].<ext>,
// creating the season directory on demand and skipping the copy if the
// destination already exists (idempotent retries, per spec.md §4.3). A dry
// run reports the path the copy would land at without touching the
// filesystem, per spec.md's edge case 6.
func RenameEpisodeActivity(_ context.Context, in RenameEpisodeInput) (RenameEpisodeOutput, error) {
	ext := filepath.Ext(in.SourcePath)
	fileName := naming.PlexEpisodeName(in.ShowName, in.SeasonNumber, in.EpisodeNumber, in.EpisodeTitle, ext)
	seasonDir := filepath.Join(in.SeriesRoot, "_episodes", fmt.Sprintf("Season %02d", in.SeasonNumber))
	destPath := filepath.Join(seasonDir, fileName)

	if in.DryRun {
		return RenameEpisodeOutput{NewPath: destPath}, nil
	}

	if _, err := os.Stat(destPath); err == nil {
		return RenameEpisodeOutput{NewPath: destPath, Skipped: true}, nil
	}

	if err := os.MkdirAll(seasonDir, 0o755); err != nil {
		return RenameEpisodeOutput{}, fmt.Errorf("mkdir season dir: %w", err)
	}
	if err := copyFile(in.SourcePath, destPath); err != nil {
		return RenameEpisodeOutput{}, fmt.Errorf("copy episode file: %w", err)
	}
	return RenameEpisodeOutput{NewPath: destPath}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// StructureInput is the input to the Structure activity.
type StructureInput struct {
	SeriesRoot string              `json:"series_root"`
	ShowName   string              `json:"show_name"`
	ExtraFiles []seraex.SourceFile `json:"extra_files"`
	DryRun     bool                `json:"dry_run"`
}

// StructureOutput is the output of the Structure activity.
type StructureOutput struct {
	StructuredRoot string `json:"structured_root"`
	EpisodesMoved  int    `json:"episodes_moved"`
	ExtrasCopied   int    `json:"extras_copied"`
}

// StructureActivity builds <series_root>/_structured/<CleanShowName>/
// locally: every file under <series_root>/_episodes/ is moved (same
// filesystem rename) into the matching Season directory under
// _structured/, and every file named in ExtraFiles — video files that the
// detector or the operator did not classify as an episode, plus episode
// files whose subtitles could not be extracted — is copied into
// _structured/.../Extras/<original_relative_path>, preserving its path
// under the original disc folder.
func StructureActivity(_ context.Context, in StructureInput) (StructureOutput, error) {
	cleanShow := naming.CleanShowName(in.ShowName)
	structuredRoot := filepath.Join(in.SeriesRoot, "_structured", cleanShow)
	episodesRoot := filepath.Join(in.SeriesRoot, "_episodes")

	if in.DryRun {
		return StructureOutput{StructuredRoot: structuredRoot, EpisodesMoved: 0, ExtrasCopied: len(in.ExtraFiles)}, nil
	}

	moved := 0
	err := filepath.WalkDir(episodesRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(episodesRoot, path)
		if relErr != nil {
			return relErr
		}
		destPath := filepath.Join(structuredRoot, rel)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		if err := os.Rename(path, destPath); err != nil {
			return fmt.Errorf("move %s: %w", rel, err)
		}
		moved++
		return nil
	})
	if err != nil {
		return StructureOutput{}, err
	}

	copied := 0
	extrasRoot := filepath.Join(structuredRoot, "Extras")
	for _, f := range in.ExtraFiles {
		destPath := filepath.Join(extrasRoot, f.RelativePath)
		if _, statErr := os.Stat(destPath); statErr == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return StructureOutput{}, fmt.Errorf("mkdir extras dir: %w", err)
		}
		if err := copyFile(f.AbsolutePath, destPath); err != nil {
			return StructureOutput{}, fmt.Errorf("copy extra %s: %w", f.RelativePath, err)
		}
		copied++
	}

	return StructureOutput{StructuredRoot: structuredRoot, EpisodesMoved: moved, ExtrasCopied: copied}, nil
}

// CaptureStagingTreeInput is the input to the CaptureStagingTree activity.
type CaptureStagingTreeInput struct {
	Root string `json:"root"`
}

// CaptureStagingTreeActivity recursively captures the staging tree rooted
// at in.Root: directories sorted before files, alphabetical within group,
// for the operator to inspect before approving Stage 5's finalize signal.
func CaptureStagingTreeActivity(_ context.Context, in CaptureStagingTreeInput) ([]seraex.TreeNode, error) {
	return captureTree(in.Root, "")
}

func captureTree(dir, relativePrefix string) ([]seraex.TreeNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var dirs, files []seraex.TreeNode
	for _, entry := range entries {
		rel := entry.Name()
		if relativePrefix != "" {
			rel = filepath.Join(relativePrefix, entry.Name())
		}
		if entry.IsDir() {
			children, err := captureTree(filepath.Join(dir, entry.Name()), rel)
			if err != nil {
				return nil, err
			}
			dirs = append(dirs, seraex.TreeNode{
				Name: entry.Name(), Type: seraex.TreeDir, RelativePath: rel, Children: children,
			})
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		size := info.Size()
		files = append(files, seraex.TreeNode{
			Name: entry.Name(), Type: seraex.TreeFile, RelativePath: rel, SizeBytes: &size,
		})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return append(dirs, files...), nil
}

// ListFilesInput is the input to the ListFiles activity.
type ListFilesInput struct {
	Root string `json:"root"`
}

// ListFilesOutput is the output of the ListFiles activity.
type ListFilesOutput struct {
	Files []seraex.SourceFile `json:"files"`
}

// ListFilesActivity recursively lists every file under Root, relative paths
// computed against Root, for copyengine batches that need to move an entire
// tree (the initial series copy, and both staging hops) rather than just
// the video files the detector cares about.
func ListFilesActivity(_ context.Context, in ListFilesInput) (ListFilesOutput, error) {
	var files []seraex.SourceFile
	err := filepath.WalkDir(in.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(in.Root, path)
		if relErr != nil {
			rel = d.Name()
		}
		files = append(files, seraex.SourceFile{
			AbsolutePath: path,
			RelativePath: rel,
			Name:         d.Name(),
			SizeBytes:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return ListFilesOutput{}, fmt.Errorf("list files under %s: %w", in.Root, err)
	}
	return ListFilesOutput{Files: files}, nil
}

// ListSubdirectoriesInput is the input to the ListSubdirectories activity.
type ListSubdirectoriesInput struct {
	Root string `json:"root"`
}

// ListSubdirectoriesActivity returns the names of Root's immediate
// subdirectories, sorted, for the library coordinator to discover the set
// of disc folders under a series source directory.
func ListSubdirectoriesActivity(_ context.Context, in ListSubdirectoriesInput) ([]string, error) {
	entries, err := os.ReadDir(in.Root)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", in.Root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CleanupInput is the input to the Cleanup activity.
type CleanupInput struct {
	Paths []string `json:"paths"`
}

// CleanupActivity force-recursively removes every path named — used at the
// end of Stage 6 to discard <staging>/<wfId> and <processing>/<wfId>.
func CleanupActivity(_ context.Context, in CleanupInput) error {
	for _, p := range in.Paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
