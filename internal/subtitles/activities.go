package subtitles

import "context"

// ExtractInput is the input to the Extract activity.
type ExtractInput struct {
	MkvextractPath string `json:"mkvextract_path"`
	FFmpegPath     string `json:"ffmpeg_path"`
	CacheRoot      string `json:"cache_root"`
	DiscFolder     string `json:"disc_folder"`
	VideoPath      string `json:"video_path"`
}

// ExtractOutput is the output of the Extract activity. Found is false when
// the file carries no text-based subtitle track worth sending to the
// matcher.
type ExtractOutput struct {
	Found  bool    `json:"found"`
	Result *Result `json:"result,omitempty"`
}

// ExtractActivity wraps Extractor.Extract for registration on a Temporal
// worker; the extractor itself is constructed fresh per call since it
// carries no state beyond configuration.
func ExtractActivity(ctx context.Context, in ExtractInput) (ExtractOutput, error) {
	extractor := New(in.MkvextractPath, in.FFmpegPath, in.CacheRoot)
	result, err := extractor.Extract(ctx, in.DiscFolder, in.VideoPath)
	if err != nil {
		return ExtractOutput{}, err
	}
	if result == nil {
		return ExtractOutput{Found: false}, nil
	}
	return ExtractOutput{Found: true, Result: result}, nil
}
