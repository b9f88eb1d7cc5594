// Package llmmatch assigns subtitle-bearing video files to (season,
// episode) slots in a series' metadata by prompting an LLM (Anthropic's
// Messages API) with forced tool use and validating the result at the
// boundary. No Anthropic or OpenAI SDK appears anywhere in the example
// corpus, so this follows the same plain net/http + encoding/json idiom the
// teacher uses for its metadata scrapers (internal/metadata/scraper_tmdb.go)
// and this module's own catalogue client.
package llmmatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

const (
	defaultModel   = "claude-3-5-haiku-latest"
	anthropicURL   = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	// maxSubtitleChars is the total subtitle text budget across all files
	// sent in one request (spec'd cap, proportional per-file truncation).
	maxSubtitleChars = 500_000
)

// SubtitleInput is one file's recovered dialogue text, keyed by file name
// so the LLM's response can reference files unambiguously.
type SubtitleInput struct {
	FileName string
	FilePath string
	Content  string
}

// Matcher calls the Anthropic Messages API to assign episodes.
type Matcher struct {
	apiKey string
	model  string
	url    string
	http   *http.Client
}

// New builds a Matcher. model defaults to defaultModel when empty.
func New(apiKey, model string) *Matcher {
	if model == "" {
		model = defaultModel
	}
	return &Matcher{apiKey: apiKey, model: model, url: anthropicURL, http: &http.Client{Timeout: 120 * time.Second}}
}

// matchEpisodesToolSchema is the forced tool-use schema the model must answer
// with; each match names a file and the (season, episode) slot it belongs
// to, with a confidence and the reasoning that produced it.
var matchEpisodesToolSchema = map[string]any{
	"name":        "match_episodes",
	"description": "Report the season/episode assignment for every subtitle file provided.",
	"input_schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"matches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_name":      map[string]any{"type": "string"},
						"season_number":  map[string]any{"type": "integer"},
						"episode_number": map[string]any{"type": "integer"},
						"episode_title":  map[string]any{"type": "string"},
						"confidence":     map[string]any{"type": "number"},
						"reasoning":      map[string]any{"type": "string"},
					},
					"required": []string{"file_name", "season_number", "episode_number", "confidence", "reasoning"},
				},
			},
		},
		"required": []string{"matches"},
	},
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []map[string]any   `json:"tools"`
	ToolChoice map[string]string `json:"tool_choice"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type matchEpisodesOutput struct {
	Matches []seraex.EpisodeMatch `json:"matches"`
}

// MatchEpisodes assigns every subtitle input to a (season, episode) slot in
// metadata. Total subtitle text is truncated proportionally across files so
// the combined length never exceeds maxSubtitleChars.
func (m *Matcher) MatchEpisodes(ctx context.Context, subtitles []SubtitleInput, metadata seraex.SeriesMetadata) ([]seraex.EpisodeMatch, error) {
	if m.apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}

	truncated := truncateProportionally(subtitles, maxSubtitleChars)
	prompt := buildPrompt(truncated, metadata)

	reqBody := anthropicRequest{
		Model:      m.model,
		MaxTokens:  4096,
		Tools:      []map[string]any{matchEpisodesToolSchema},
		ToolChoice: map[string]string{"type": "tool", "name": "match_episodes"},
		Messages:   []anthropicMessage{{Role: "user", Content: prompt}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("anthropic error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic request returned %d", resp.StatusCode)
	}

	for _, block := range parsed.Content {
		if block.Type != "tool_use" || block.Name != "match_episodes" {
			continue
		}
		var out matchEpisodesOutput
		if err := json.Unmarshal(block.Input, &out); err != nil {
			return nil, fmt.Errorf("decode match_episodes tool input: %w", err)
		}
		return out.Matches, nil
	}
	return nil, fmt.Errorf("anthropic response contained no match_episodes tool call")
}

// truncateProportionally shrinks each file's content so the combined length
// fits within budget, preserving each file's share of the original total.
func truncateProportionally(subtitles []SubtitleInput, budget int) []SubtitleInput {
	total := 0
	for _, s := range subtitles {
		total += len(s.Content)
	}
	if total <= budget {
		return subtitles
	}

	out := make([]SubtitleInput, len(subtitles))
	for i, s := range subtitles {
		share := budget * len(s.Content) / total
		if share > len(s.Content) {
			share = len(s.Content)
		}
		out[i] = SubtitleInput{FileName: s.FileName, FilePath: s.FilePath, Content: s.Content[:share]}
	}
	return out
}

func buildPrompt(subtitles []SubtitleInput, metadata seraex.SeriesMetadata) string {
	var b bytes.Buffer
	b.WriteString("Assign each of the following subtitle files to a (season, episode) slot in the series metadata below. ")
	b.WriteString("Use the match_episodes tool to report your answer.\n\n")
	b.WriteString("Series metadata:\n")
	for _, season := range metadata.Seasons {
		fmt.Fprintf(&b, "Season %d (%s / %s), %d episodes:\n", season.SeasonNumber, season.TitleEnglish, season.TitleRomaji, season.EpisodeCount)
		for _, ep := range season.Episodes {
			fmt.Fprintf(&b, "  Episode %d: %s\n", ep.Number, ep.Title)
		}
	}
	b.WriteString("\nSubtitle files:\n")
	for _, s := range subtitles {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", s.FileName, s.Content)
	}
	return b.String()
}
