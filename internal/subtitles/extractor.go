// Package subtitles extracts dialogue text from video files so the LLM
// matcher has something to reason over. It shells out to mkvextract for
// Matroska containers and falls back to ffmpeg for everything else,
// following the teacher's os/exec-wrapping style in
// internal/ffmpeg/ffprobe.go (build an *exec.Cmd, capture its output,
// wrap any failure with context).
package subtitles

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Source distinguishes a text subtitle track pulled out of a Matroska
// container by mkvextract from one ffmpeg extracted from the container.
// Both paths handle text subtitle codecs only; image-based tracks such as
// PGS yield no result.
type Source string

const (
	SourceEmbedded Source = "embedded"
	SourceExternal Source = "external"
)

// Result is the dialogue text recovered from one video file.
type Result struct {
	FilePath string  `json:"file_path"`
	FileName string  `json:"file_name"`
	Content  string  `json:"content"`
	Source   Source  `json:"source"`
	Language *string `json:"language,omitempty"`
}

// Extractor pulls subtitle text from video files, caching the result under
// cacheRoot/<disc folder>/<video basename>.txt so a retried activity does
// not re-invoke mkvextract/ffmpeg for a file it already processed.
type Extractor struct {
	MkvextractPath string
	FFmpegPath     string
	CacheRoot      string
}

// New builds an Extractor bound to the given tool paths and cache directory.
func New(mkvextractPath, ffmpegPath, cacheRoot string) *Extractor {
	return &Extractor{MkvextractPath: mkvextractPath, FFmpegPath: ffmpegPath, CacheRoot: cacheRoot}
}

var mkvSubtitleTrackRx = regexp.MustCompile(`(?m)^Track ID (\d+): subtitles \(([^)]+)\)`)

// Extract returns the dialogue text for one video file, or a nil *Result if
// the file carries no text-based subtitle track. discFolder names the cache
// subdirectory so two discs with a same-named episode file don't collide.
func (e *Extractor) Extract(ctx context.Context, discFolder, videoPath string) (*Result, error) {
	cachePath := filepath.Join(e.CacheRoot, discFolder, cacheFileName(videoPath))
	if cached, ok, err := readCache(cachePath); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	result, err := e.extractUncached(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	if err := writeCache(cachePath, result); err != nil {
		return nil, fmt.Errorf("cache subtitle extraction: %w", err)
	}
	return result, nil
}

func (e *Extractor) extractUncached(ctx context.Context, videoPath string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(videoPath))
	if ext == ".mkv" {
		return e.extractFromMKV(ctx, videoPath)
	}
	return e.extractViaFFmpeg(ctx, videoPath)
}

func (e *Extractor) extractFromMKV(ctx context.Context, videoPath string) (*Result, error) {
	trackID, lang, ok, err := e.findTextSubtitleTrack(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe mkv subtitle tracks: %w", err)
	}
	if !ok {
		return e.extractViaFFmpeg(ctx, videoPath)
	}

	tmpDir, err := os.MkdirTemp("", "seraex-subs-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outPath := filepath.Join(tmpDir, "track.srt")
	cmd := exec.CommandContext(ctx, e.MkvextractPath, "tracks", videoPath,
		fmt.Sprintf("%d:%s", trackID, outPath))
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("mkvextract failed: %w: %s", err, string(output))
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted subtitle: %w", err)
	}

	var langPtr *string
	if lang != "" {
		langPtr = &lang
	}
	return &Result{
		FilePath: videoPath,
		FileName: filepath.Base(videoPath),
		Content:  stripSRTFormatting(string(raw)),
		Source:   SourceEmbedded,
		Language: langPtr,
	}, nil
}

// findTextSubtitleTrack locates the first text-based subtitle stream via
// ffprobe (mkvextract has no track-listing mode of its own) and returns its
// stream index, which lines up with the mkvextract track ID for the track
// selector passed to `mkvextract tracks`.
func (e *Extractor) findTextSubtitleTrack(ctx context.Context, videoPath string) (trackID int, language string, ok bool, err error) {
	cmd := exec.CommandContext(ctx, ffprobePath(e.FFmpegPath), "-v", "quiet", "-print_format", "json", "-show_streams", videoPath)
	output, err := cmd.Output()
	if err != nil {
		return 0, "", false, fmt.Errorf("ffprobe: %w", err)
	}

	streams, mkvIndex, err := parseSubtitleStreams(output)
	if err != nil {
		return 0, "", false, err
	}
	for i, s := range streams {
		if isTextSubtitleCodec(s.CodecName) {
			return mkvIndex[i], s.Language, true, nil
		}
	}
	return 0, "", false, nil
}

func (e *Extractor) extractViaFFmpeg(ctx context.Context, videoPath string) (*Result, error) {
	hasSub, lang, err := e.hasTextSubtitleStream(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe subtitle streams: %w", err)
	}
	if !hasSub {
		return nil, nil
	}

	tmpDir, err := os.MkdirTemp("", "seraex-subs-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outPath := filepath.Join(tmpDir, "track.srt")
	cmd := exec.CommandContext(ctx, e.FFmpegPath, "-y", "-i", videoPath, "-map", "0:s:0", outPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg subtitle extraction failed: %w: %s", err, string(output))
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted subtitle: %w", err)
	}

	var langPtr *string
	if lang != "" {
		langPtr = &lang
	}
	return &Result{
		FilePath: videoPath,
		FileName: filepath.Base(videoPath),
		Content:  stripSRTFormatting(string(raw)),
		Source:   SourceExternal,
		Language: langPtr,
	}, nil
}

func (e *Extractor) hasTextSubtitleStream(ctx context.Context, videoPath string) (bool, string, error) {
	cmd := exec.CommandContext(ctx, ffprobePath(e.FFmpegPath), "-v", "quiet", "-print_format", "json", "-show_streams", videoPath)
	output, err := cmd.Output()
	if err != nil {
		return false, "", fmt.Errorf("ffprobe: %w", err)
	}
	streams, _, err := parseSubtitleStreams(output)
	if err != nil {
		return false, "", err
	}
	for _, s := range streams {
		if isTextSubtitleCodec(s.CodecName) {
			return true, s.Language, nil
		}
	}
	return false, "", nil
}

func ffprobePath(ffmpegPath string) string {
	dir := filepath.Dir(ffmpegPath)
	base := filepath.Base(ffmpegPath)
	if strings.Contains(base, "ffmpeg") {
		return filepath.Join(dir, strings.Replace(base, "ffmpeg", "ffprobe", 1))
	}
	return filepath.Join(dir, "ffprobe")
}

var textSubtitleCodecs = map[string]bool{
	"subrip": true, "ass": true, "ssa": true, "webvtt": true, "mov_text": true,
}

func isTextSubtitleCodec(codec string) bool {
	return textSubtitleCodecs[strings.ToLower(codec)]
}

func cacheFileName(videoPath string) string {
	base := filepath.Base(videoPath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".txt"
}

// sourceCachePath returns the sidecar path recording which Source produced
// the cached subtitle text, since the .txt cache file itself holds only raw
// dialogue content.
func sourceCachePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".source"
}

func readCache(path string) (*Result, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read subtitle cache: %w", err)
	}

	source := SourceEmbedded
	if sourceRaw, err := os.ReadFile(sourceCachePath(path)); err == nil {
		source = Source(strings.TrimSpace(string(sourceRaw)))
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("read subtitle cache source: %w", err)
	}

	return &Result{Content: string(raw), Source: source}, true, nil
}

func writeCache(path string, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(result.Content), 0o644); err != nil {
		return err
	}
	return os.WriteFile(sourceCachePath(path), []byte(result.Source), 0o644)
}

var srtTimingRx = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}`)
var srtTagRx = regexp.MustCompile(`<[^>]+>`)

// stripSRTFormatting reduces an SRT file down to its spoken lines: drops
// sequence numbers, timing cues, and inline markup tags.
func stripSRTFormatting(raw string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || srtTimingRx.MatchString(line) {
			continue
		}
		if _, err := strconv.Atoi(line); err == nil {
			continue
		}
		b.WriteString(srtTagRx.ReplaceAllString(line, ""))
		b.WriteString("\n")
	}
	return b.String()
}

type probeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Index     int    `json:"index"`
	Tags      struct {
		Language string `json:"language"`
	} `json:"tags"`
}

type subtitleStream struct {
	CodecName string
	Language  string
}

func parseSubtitleStreams(ffprobeJSON []byte) ([]subtitleStream, []int, error) {
	var parsed struct {
		Streams []probeStream `json:"streams"`
	}
	if err := json.Unmarshal(ffprobeJSON, &parsed); err != nil {
		return nil, nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	var streams []subtitleStream
	var indices []int
	for _, s := range parsed.Streams {
		if s.CodecType != "subtitle" {
			continue
		}
		streams = append(streams, subtitleStream{CodecName: s.CodecName, Language: s.Tags.Language})
		indices = append(indices, s.Index)
	}
	return streams, indices, nil
}
