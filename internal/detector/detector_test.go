package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

func TestClassifyEmpty(t *testing.T) {
	result := classify(nil)
	if result.Confidence != seraex.ConfidenceLow {
		t.Errorf("Confidence = %v, want low", result.Confidence)
	}
	if len(result.Episodes) != 0 || len(result.NonEpisodes) != 0 {
		t.Errorf("expected empty episode/non-episode sets, got %+v", result)
	}
}

func TestClassifySingleFile(t *testing.T) {
	files := []seraex.SourceFile{{Name: "ep1.mkv", SizeBytes: 1 << 30}}
	result := classify(files)
	if result.Confidence != seraex.ConfidenceMedium {
		t.Errorf("Confidence = %v, want medium", result.Confidence)
	}
	if len(result.Episodes) != 1 {
		t.Errorf("expected 1 episode, got %d", len(result.Episodes))
	}
}

func TestClassifyTwoFiles(t *testing.T) {
	files := []seraex.SourceFile{
		{Name: "ep1.mkv", SizeBytes: 1 << 30},
		{Name: "ep2.mkv", SizeBytes: 1 << 30},
	}
	result := classify(files)
	if result.Confidence != seraex.ConfidenceLow {
		t.Errorf("Confidence = %v, want low", result.Confidence)
	}
	if len(result.Episodes) != 2 {
		t.Errorf("expected 2 episodes, got %d", len(result.Episodes))
	}
}

func TestClassifyHighConfidenceCluster(t *testing.T) {
	const gib = 1 << 30
	var files []seraex.SourceFile
	for i := 0; i < 10; i++ {
		files = append(files, seraex.SourceFile{Name: "episode.mkv", SizeBytes: int64(gib * 13 / 10)})
	}
	// A couple of extras far outside the cluster.
	files = append(files, seraex.SourceFile{Name: "menu.mkv", SizeBytes: 80 * 1024 * 1024})
	files = append(files, seraex.SourceFile{Name: "trailer.mkv", SizeBytes: 40 * 1024 * 1024})

	result := classify(files)
	if result.Confidence != seraex.ConfidenceHigh {
		t.Fatalf("Confidence = %v, want high", result.Confidence)
	}
	if len(result.Episodes) != 10 {
		t.Errorf("expected 10 episodes, got %d", len(result.Episodes))
	}
	if len(result.NonEpisodes) != 2 {
		t.Errorf("expected 2 non-episodes, got %d", len(result.NonEpisodes))
	}
}

func TestClassifyPartitionIsDisjointAndComplete(t *testing.T) {
	const gib = 1 << 30
	var files []seraex.SourceFile
	for i := 0; i < 8; i++ {
		files = append(files, seraex.SourceFile{Name: "e.mkv", SizeBytes: int64(gib * 11 / 10)})
	}
	for i := 0; i < 4; i++ {
		files = append(files, seraex.SourceFile{Name: "b.mkv", SizeBytes: int64(gib * 7 / 10)})
	}

	result := classify(files)
	if len(result.Episodes)+len(result.NonEpisodes) != len(files) {
		t.Fatalf("partition not complete: %d + %d != %d", len(result.Episodes), len(result.NonEpisodes), len(files))
	}
	seen := map[string]bool{}
	for _, f := range result.Episodes {
		seen[f.AbsolutePath+f.Name] = true
	}
	for _, f := range result.NonEpisodes {
		key := f.AbsolutePath + f.Name
		if seen[key] {
			t.Errorf("file present in both episodes and non-episodes sets")
		}
	}
	for _, f := range result.Episodes {
		if f.SizeBytes < result.ClusterRangeLow || f.SizeBytes > result.ClusterRangeHigh {
			t.Errorf("episode size %d outside window [%d, %d]", f.SizeBytes, result.ClusterRangeLow, result.ClusterRangeHigh)
		}
	}
}

func TestDetectSkipsUnderscoreDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "episode1.mkv"), 1200)
	writeFile(t, filepath.Join(dir, "episode2.mkv"), 1200)
	writeFile(t, filepath.Join(dir, "episode3.mkv"), 1200)

	reserved := filepath.Join(dir, "_subtitles")
	if err := os.MkdirAll(reserved, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(reserved, "hidden.mkv"), 1200)

	result, err := Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if total := len(result.Episodes) + len(result.NonEpisodes); total != 3 {
		t.Errorf("expected 3 files discovered (underscore dir skipped), got %d", total)
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}
