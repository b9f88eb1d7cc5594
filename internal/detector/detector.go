// Package detector implements the episode cluster detector (C2): a
// file-size histogram heuristic that splits the video files under one disc
// folder into likely episodes and likely extras.
package detector

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

const minBinWidth = 50 * 1024 * 1024 // 50 MiB

var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".webm": true,
	".m4v":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
}

// Detect walks folder recursively, skipping any subdirectory whose name
// begins with "_", collects video files by extension, and classifies them
// into episodes and non-episodes using a size-histogram heuristic.
func Detect(folder string) (seraex.DetectionResult, error) {
	files, err := collectVideoFiles(folder)
	if err != nil {
		return seraex.DetectionResult{}, err
	}
	return classify(files), nil
}

func collectVideoFiles(root string) ([]seraex.SourceFile, error) {
	var files []seraex.SourceFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !videoExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
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
		return nil, err
	}
	return files, nil
}

func classify(files []seraex.SourceFile) seraex.DetectionResult {
	n := len(files)

	if n == 0 {
		return seraex.DetectionResult{Confidence: seraex.ConfidenceLow}
	}

	if n <= 2 {
		conf := seraex.ConfidenceLow
		if n == 1 {
			conf = seraex.ConfidenceMedium
		}
		return seraex.DetectionResult{
			Episodes:   append([]seraex.SourceFile(nil), files...),
			Confidence: conf,
		}
	}

	sorted := append([]seraex.SourceFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SizeBytes < sorted[j].SizeBytes })

	min := sorted[0].SizeBytes
	max := sorted[len(sorted)-1].SizeBytes

	width := (max - min) / 20
	if width < minBinWidth {
		width = minBinWidth
	}

	bins := map[int][]seraex.SourceFile{}
	for _, f := range sorted {
		idx := 0
		if width > 0 {
			idx = int((f.SizeBytes - min) / width)
		}
		bins[idx] = append(bins[idx], f)
	}

	bestIdx, bestCount := 0, -1
	indices := make([]int, 0, len(bins))
	for idx := range bins {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		if len(bins[idx]) > bestCount {
			bestCount = len(bins[idx])
			bestIdx = idx
		}
	}

	selected := bins[bestIdx]
	median := medianSize(selected)

	lowBound := int64(float64(median) * 0.8)
	highBound := int64(float64(median) * 1.2)

	var episodes, nonEpisodes []seraex.SourceFile
	for _, f := range sorted {
		if f.SizeBytes >= lowBound && f.SizeBytes <= highBound {
			episodes = append(episodes, f)
		} else {
			nonEpisodes = append(nonEpisodes, f)
		}
	}

	confidence := seraex.ConfidenceLow
	if len(episodes) >= 6 && float64(len(episodes))/float64(n) > 0.6 {
		confidence = seraex.ConfidenceHigh
	} else if len(episodes) >= 3 {
		confidence = seraex.ConfidenceMedium
	}

	return seraex.DetectionResult{
		Episodes:         episodes,
		NonEpisodes:      nonEpisodes,
		Confidence:       confidence,
		ClusterMedian:    median,
		ClusterRangeLow:  lowBound,
		ClusterRangeHigh: highBound,
	}
}

func medianSize(files []seraex.SourceFile) int64 {
	sizes := make([]int64, len(files))
	for i, f := range files {
		sizes[i] = f.SizeBytes
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}
