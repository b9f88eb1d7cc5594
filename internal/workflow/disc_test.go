package workflow

import (
	"reflect"
	"sort"
	"testing"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

func pathsOf(files []seraex.SourceFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.AbsolutePath)
	}
	sort.Strings(out)
	return out
}

func TestApplyDetectionConfirmationUnionsAndAppliesRemoved(t *testing.T) {
	detection := seraex.DetectionResult{
		Episodes: []seraex.SourceFile{
			{AbsolutePath: "/d/e1.mkv"},
			{AbsolutePath: "/d/e2.mkv"},
		},
		NonEpisodes: []seraex.SourceFile{
			{AbsolutePath: "/d/bonus1.mkv"},
			{AbsolutePath: "/d/bonus2.mkv"},
		},
	}
	confirmation := seraex.DetectionConfirmation{
		Confirmed:    true,
		RemovedPaths: []string{"/d/bonus2.mkv"},
	}

	got := applyDetectionConfirmation(detection, confirmation)
	want := []string{"/d/bonus1.mkv", "/d/e1.mkv", "/d/e2.mkv"}
	if !reflect.DeepEqual(pathsOf(got), want) {
		t.Fatalf("got %v, want %v", pathsOf(got), want)
	}
}

func TestApplyDetectionConfirmationAddsBackAddedPaths(t *testing.T) {
	detection := seraex.DetectionResult{
		Episodes: []seraex.SourceFile{
			{AbsolutePath: "/d/e1.mkv"},
		},
	}
	confirmation := seraex.DetectionConfirmation{
		Confirmed:  true,
		AddedPaths: []string{"/d/extra.mkv"},
	}

	got := applyDetectionConfirmation(detection, confirmation)
	want := []string{"/d/e1.mkv", "/d/extra.mkv"}
	if !reflect.DeepEqual(pathsOf(got), want) {
		t.Fatalf("got %v, want %v", pathsOf(got), want)
	}
}

func TestTruncateSnippetRespectsMax(t *testing.T) {
	s := "0123456789"
	if got := truncateSnippet(s, 4); got != "0123" {
		t.Fatalf("expected truncated snippet, got %q", got)
	}
	if got := truncateSnippet(s, 100); got != s {
		t.Fatalf("expected unchanged snippet under max, got %q", got)
	}
}

func TestAvailableSeasonsAndEpisodes(t *testing.T) {
	metadata := seraex.SeriesMetadata{Seasons: []seraex.Season{
		{SeasonNumber: 1, Episodes: []seraex.Episode{{Number: 1}, {Number: 2}}},
		{SeasonNumber: 2, Episodes: []seraex.Episode{{Number: 1}}},
	}}

	if got := availableSeasons(metadata); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("unexpected seasons: %v", got)
	}
	if got := availableEpisodes(metadata); !reflect.DeepEqual(got, []int{1, 2, 1}) {
		t.Fatalf("unexpected episodes: %v", got)
	}
}
