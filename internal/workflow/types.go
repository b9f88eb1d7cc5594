// Package workflow implements the disc coordinator (C3) and library
// coordinator (C4) as Temporal workflows, plus the local activities that
// structure the processing tree between external-collaborator calls. Both
// workflows are deterministic state machines: every side effect (copying,
// detection, subtitle extraction, catalogue/LLM calls, filesystem
// restructuring) is pushed into an activity, and the only concurrency
// primitives used are workflow.Go, workflow.Selector, and workflow.Await,
// per spec.md §5.
package workflow

import "github.com/Reclyptor/SERAEX/internal/seraex"

// Signal and query names, shared between the workflow implementations and
// the internal/client package that drives them from outside a workflow.
const (
	SignalFinalize              = "finalize"
	SignalReviewDecision        = "reviewDecision"
	SignalDetectionConfirmation = "detectionConfirmation"

	QueryLibraryProgress = "getProgress"
	QueryDiscProgress    = "getProgress"
	QueryStagingTree     = "getStagingTree"
)

// DiscWorkflowInput is C3's input contract, extended with the handful of
// fields the disc coordinator needs from configuration that spec.md's
// contract leaves implicit (tool paths for the subtitle extractor, the
// Anthropic credentials for the LLM matcher, and the resolved show name for
// Plex-style renaming) since everything crossing the workflow boundary must
// travel as an explicit, exported, JSON-serializable field.
type DiscWorkflowInput struct {
	FolderPath          string                `json:"folder_path"`
	FolderName          string                `json:"folder_name"`
	SeriesRoot          string                `json:"series_root"`
	ShowName            string                `json:"show_name"`
	SeriesMetadata      seraex.SeriesMetadata `json:"series_metadata"`
	DryRun              bool                  `json:"dry_run"`
	ConfidenceThreshold float64               `json:"confidence_threshold"`
	MkvextractPath      string                `json:"mkvextract_path"`
	FFmpegPath          string                `json:"ffmpeg_path"`
	AnthropicAPIKey     string                `json:"anthropic_api_key"`
	AnthropicModel      string                `json:"anthropic_model"`
}

// LibraryWorkflowInput is C4's input contract.
type LibraryWorkflowInput struct {
	RunID               string       `json:"run_id"`
	SeriesSourceDir     string       `json:"series_source_dir"`
	Roots               seraex.Roots `json:"roots"`
	ConfidenceThreshold float64      `json:"confidence_threshold"`
	DryRun              bool         `json:"dry_run"`
	MkvextractPath      string       `json:"mkvextract_path"`
	FFmpegPath          string       `json:"ffmpeg_path"`
	AniListGraphQLURL   string       `json:"anilist_graphql_url"`
	AnthropicAPIKey     string       `json:"anthropic_api_key"`
	AnthropicModel      string       `json:"anthropic_model"`
}

// maxConcurrentDiscChildren is the sliding window size F from spec.md §4.4
// Stage 3.
const maxConcurrentDiscChildren = 5
