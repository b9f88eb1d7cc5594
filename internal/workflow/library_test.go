package workflow

import (
	"testing"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

func TestLibraryProgressAggregatesFolderStatuses(t *testing.T) {
	state := &libraryState{
		folderStatuses: map[string]seraex.FolderStatus{
			"disc1": seraex.FolderCompleted,
			"disc2": seraex.FolderFailed,
			"disc3": seraex.FolderAwaitingReview,
			"disc4": seraex.FolderExtracting,
		},
		expectedCore: 10,
		resolvedCore: 4,
	}

	progress := state.progress()
	if progress.TotalFolders != 4 {
		t.Fatalf("expected 4 total folders, got %d", progress.TotalFolders)
	}
	if progress.FoldersCompleted != 1 || progress.FoldersFailed != 1 {
		t.Fatalf("unexpected completed/failed counts: %+v", progress)
	}
	if progress.FoldersPendingReview != 1 {
		t.Fatalf("expected 1 pending review, got %d", progress.FoldersPendingReview)
	}
	if progress.FoldersInProgress != 1 {
		t.Fatalf("expected 1 in progress, got %d", progress.FoldersInProgress)
	}
	if progress.UnresolvedCoreEpisodeCount != 6 {
		t.Fatalf("expected 6 unresolved episodes, got %d", progress.UnresolvedCoreEpisodeCount)
	}
}

func TestFirstSeasonEnglishAndRomajiHandleEmptyMetadata(t *testing.T) {
	empty := seraex.SeriesMetadata{}
	if got := firstSeasonEnglish(empty); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := firstSeasonRomaji(empty); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}

	metadata := seraex.SeriesMetadata{Seasons: []seraex.Season{{TitleEnglish: "Show", TitleRomaji: "Shou"}}}
	if got := firstSeasonEnglish(metadata); got != "Show" {
		t.Fatalf("expected Show, got %q", got)
	}
	if got := firstSeasonRomaji(metadata); got != "Shou" {
		t.Fatalf("expected Shou, got %q", got)
	}
}

func TestToFolderResultsMapsOutcomes(t *testing.T) {
	outcomes := []folderOutcome{
		{result: seraex.ProcessFolderResult{FolderName: "disc1", Status: seraex.FolderCompleted}},
		{result: seraex.ProcessFolderResult{FolderName: "disc2", Status: seraex.FolderFailed, Error: "boom"}},
	}
	results := toFolderResults(outcomes)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Error != "boom" {
		t.Fatalf("expected error to carry through, got %q", results[1].Error)
	}
}
