package llmmatch

import (
	"context"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

// MatchInput is the input to the MatchEpisodes activity.
type MatchInput struct {
	APIKey    string          `json:"api_key"`
	Model     string          `json:"model"`
	Subtitles []SubtitleInput `json:"subtitles"`
	Metadata  seraex.SeriesMetadata `json:"metadata"`
}

// MatchOutput is the output of the MatchEpisodes activity.
type MatchOutput struct {
	Matches []seraex.EpisodeMatch `json:"matches"`
}

// MatchEpisodesActivity wraps Matcher.MatchEpisodes for registration on a
// Temporal worker.
func MatchEpisodesActivity(ctx context.Context, in MatchInput) (MatchOutput, error) {
	matcher := New(in.APIKey, in.Model)
	matches, err := matcher.MatchEpisodes(ctx, in.Subtitles, in.Metadata)
	if err != nil {
		return MatchOutput{}, err
	}
	return MatchOutput{Matches: matches}, nil
}
