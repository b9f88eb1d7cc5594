// Package seraex holds the value types shared by the copy engine, the
// detector, the disc and library workflows, and the progress/signal
// surface. Everything here crosses a Temporal workflow/activity boundary at
// some point, so every type must round-trip through encoding/json cleanly —
// no channels, no funcs, no unexported fields that matter.
package seraex

import "strconv"

// Roots bundles the four filesystem roots a library run touches.
type Roots struct {
	Input      string `json:"input"`
	Processing string `json:"processing"`
	Staging    string `json:"staging"`
	Output     string `json:"output"`
}

// Episode is one entry in a season's episode list.
type Episode struct {
	Number      int    `json:"number"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Season is a single 1-indexed broadcast run in the catalogue's relation
// chain for a series.
type Season struct {
	SeasonNumber int       `json:"season_number"`
	CatalogueID  int       `json:"catalogue_id"`
	TitleEnglish string    `json:"title_english"`
	TitleRomaji  string    `json:"title_romaji"`
	EpisodeCount int       `json:"episode_count"`
	Episodes     []Episode `json:"episodes"`
}

// SeriesMetadata is the ordered, multi-season metadata for one series.
// Invariant: TotalEpisodes() == sum of season.EpisodeCount, and season
// numbers are dense from 1.
type SeriesMetadata struct {
	Seasons []Season `json:"seasons"`
}

// TotalEpisodes sums every season's episode count.
func (m SeriesMetadata) TotalEpisodes() int {
	total := 0
	for _, s := range m.Seasons {
		total += s.EpisodeCount
	}
	return total
}

// SeasonByNumber returns the season with the given 1-indexed number, or
// false if none exists.
func (m SeriesMetadata) SeasonByNumber(n int) (Season, bool) {
	for _, s := range m.Seasons {
		if s.SeasonNumber == n {
			return s, true
		}
	}
	return Season{}, false
}

// EpisodeTitle looks up the authoritative title for (season, episode),
// falling back to "Episode N" when the catalogue has no title on file.
func (m SeriesMetadata) EpisodeTitle(season, episode int) string {
	s, ok := m.SeasonByNumber(season)
	if !ok {
		return episodeFallbackTitle(episode)
	}
	for _, e := range s.Episodes {
		if e.Number == episode {
			if e.Title != "" {
				return e.Title
			}
			return episodeFallbackTitle(episode)
		}
	}
	return episodeFallbackTitle(episode)
}

func episodeFallbackTitle(episode int) string {
	return "Episode " + strconv.Itoa(episode)
}

// SourceFile describes one file discovered under an enumeration root.
// Immutable once created for a given root.
type SourceFile struct {
	AbsolutePath string `json:"absolute_path"`
	RelativePath string `json:"path_relative_to_enum_root"`
	Name         string `json:"name"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Confidence is the detector's tri-level confidence in its cluster split.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DetectionResult is the output of the episode cluster detector.
type DetectionResult struct {
	Episodes      []SourceFile `json:"episodes"`
	NonEpisodes   []SourceFile `json:"non_episodes"`
	Confidence    Confidence   `json:"confidence"`
	ClusterMedian int64        `json:"cluster_median"`
	ClusterRangeLow  int64     `json:"cluster_range_low"`
	ClusterRangeHigh int64     `json:"cluster_range_high"`
}

// EpisodeMatch is the LLM matcher's assignment of one file to a slot.
type EpisodeMatch struct {
	FileName      string  `json:"file_name"`
	FilePath      string  `json:"file_path"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	EpisodeTitle  string  `json:"episode_title"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// RenamedFile is a Plex-named copy produced from an EpisodeMatch.
type RenamedFile struct {
	OriginalPath         string `json:"original_path"`
	OriginalRelativePath string `json:"original_relative_path"`
	NewPath              string `json:"new_path"`
	NewFileName          string `json:"new_file_name"`
	SeasonNumber         int    `json:"season_number"`
	EpisodeNumber        int    `json:"episode_number"`
}

// ReviewItem is a low-confidence match surfaced for human review.
type ReviewItem struct {
	ID                string   `json:"id"`
	File               SourceFile `json:"file"`
	SuggestedSeason    int      `json:"suggested_season"`
	SuggestedEpisode   int      `json:"suggested_episode"`
	Confidence         float64  `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	DialogueSnippet    string   `json:"dialogue_snippet"`
	AvailableSeasons   []int    `json:"available_seasons"`
	AvailableEpisodes  []int    `json:"available_episodes"`
}

// ReviewDecision is a human's verdict on one ReviewItem.
type ReviewDecision struct {
	ReviewItemID     string `json:"review_item_id"`
	Approved         bool   `json:"approved"`
	CorrectedSeason  *int   `json:"corrected_season,omitempty"`
	CorrectedEpisode *int   `json:"corrected_episode,omitempty"`
}

// DetectionConfirmation resolves a medium/low confidence cluster split.
type DetectionConfirmation struct {
	Confirmed    bool     `json:"confirmed"`
	AddedPaths   []string `json:"added_paths,omitempty"`
	RemovedPaths []string `json:"removed_paths,omitempty"`
}

// FinalizeDecision is the human's verdict on the staged layout.
type FinalizeDecision struct {
	Approved bool `json:"approved"`
}

// FolderStatus is the tagged state of one disc coordinator.
type FolderStatus string

const (
	FolderPending                  FolderStatus = "pending"
	FolderScanning                 FolderStatus = "scanning"
	FolderExtracting               FolderStatus = "extracting"
	FolderMatching                 FolderStatus = "matching"
	FolderRenaming                 FolderStatus = "renaming"
	FolderAwaitingDetectionReview  FolderStatus = "awaiting_detection_review"
	FolderAwaitingReview           FolderStatus = "awaiting_review"
	FolderCompleted                FolderStatus = "completed"
	FolderFailed                   FolderStatus = "failed"
)

// WorkflowStage is the tagged state of the library coordinator.
type WorkflowStage string

const (
	StageCopying           WorkflowStage = "copying"
	StageFetchingMetadata  WorkflowStage = "fetching_metadata"
	StageProcessingFolders WorkflowStage = "processing_folders"
	StageStructuring       WorkflowStage = "structuring"
	StageAwaitingFinalize  WorkflowStage = "awaiting_finalize"
	StageFinalizing        WorkflowStage = "finalizing"
	StageCompleted         WorkflowStage = "completed"
	StageFailed            WorkflowStage = "failed"
	StageCanceled          WorkflowStage = "canceled"
)

// CopyProgress tracks one in-flight parallel-copy activity.
type CopyProgress struct {
	TotalFiles   int      `json:"total_files"`
	TotalBytes   int64    `json:"total_bytes"`
	FilesCopied  int      `json:"files_copied"`
	BytesCopied  int64    `json:"bytes_copied"`
	CurrentFiles []string `json:"current_files"`
}

// StructuringProgress tracks the local move/copy pass into _structured/.
type StructuringProgress struct {
	TotalFiles      int    `json:"total_files"`
	FilesStructured int    `json:"files_structured"`
	CurrentFile     string `json:"current_file,omitempty"`
}

// MetadataFetchStatus is the tagged state of Stage 2.
type MetadataFetchStatus string

const (
	MetadataSearching        MetadataFetchStatus = "searching"
	MetadataFound            MetadataFetchStatus = "found"
	MetadataTraversing       MetadataFetchStatus = "traversing"
	MetadataFetchingEpisodes MetadataFetchStatus = "fetching_episodes"
	MetadataComplete         MetadataFetchStatus = "complete"
)

// MetadataSummary tracks Stage 2's progress toward a complete SeriesMetadata.
type MetadataSummary struct {
	Status  MetadataFetchStatus `json:"status"`
	Seasons []Season            `json:"seasons,omitempty"`
}

// TreeNodeType distinguishes directories from files in a staging tree.
type TreeNodeType string

const (
	TreeDir  TreeNodeType = "dir"
	TreeFile TreeNodeType = "file"
)

// TreeNode is one entry in a recursively captured staging tree.
type TreeNode struct {
	Name         string     `json:"name"`
	Type         TreeNodeType `json:"type"`
	RelativePath string     `json:"relative_path"`
	SizeBytes    *int64     `json:"size,omitempty"`
	Children     []TreeNode `json:"children,omitempty"`
}

// DiscProgress is the live snapshot exposed by a disc coordinator's
// getProgress query.
type DiscProgress struct {
	FolderName            string       `json:"folder_name"`
	Status                FolderStatus `json:"status"`
	TotalVideoFiles        *int        `json:"total_video_files,omitempty"`
	DetectedEpisodeCount   *int        `json:"detected_episode_count,omitempty"`
	DetectionConfidence    *Confidence `json:"detection_confidence,omitempty"`
	TotalEpisodeFiles      *int        `json:"total_episode_files,omitempty"`
	SubtitlesExtracted     int         `json:"subtitles_extracted"`
	CurrentFile            *string     `json:"current_file,omitempty"`
	MatchesFound           *int        `json:"matches_found,omitempty"`
	TotalToMatch           *int        `json:"total_to_match,omitempty"`
	EpisodesCopied         int         `json:"episodes_copied"`
	TotalEpisodesToCopy    *int        `json:"total_episodes_to_copy,omitempty"`
	PendingReviews         []ReviewItem `json:"pending_reviews"`
}

// ProcessFolderResult is the terminal output of a disc coordinator.
type ProcessFolderResult struct {
	FolderName           string        `json:"folder_name"`
	Status               FolderStatus  `json:"status"`
	RenamedFiles         []RenamedFile `json:"renamed_files"`
	EpisodeOriginalPaths []string      `json:"episode_original_paths"`
	UnprocessedFiles     []string      `json:"unprocessed_files"`
	Error                string        `json:"error,omitempty"`
}

// LibraryProgress is the live snapshot exposed by the library coordinator's
// getProgress query.
type LibraryProgress struct {
	Stage                    WorkflowStage           `json:"stage"`
	CopyProgress             *CopyProgress           `json:"copy_progress,omitempty"`
	MetadataSummary          *MetadataSummary        `json:"metadata_summary,omitempty"`
	StructuringProgress      *StructuringProgress    `json:"structuring_progress,omitempty"`
	OutputProgress           *CopyProgress           `json:"output_progress,omitempty"`
	TotalFolders             int                     `json:"total_folders"`
	FoldersCompleted         int                     `json:"folders_completed"`
	FoldersFailed            int                     `json:"folders_failed"`
	FoldersInProgress        int                     `json:"folders_in_progress"`
	FoldersPendingReview     int                     `json:"folders_pending_review"`
	FolderStatuses           map[string]FolderStatus `json:"folder_statuses"`
	ExpectedCoreEpisodeCount int                     `json:"expected_core_episode_count"`
	ResolvedCoreEpisodeCount int                     `json:"resolved_core_episode_count"`
	UnresolvedCoreEpisodeCount int                   `json:"unresolved_core_episode_count"`
	CanFinalize              bool                    `json:"can_finalize"`
	AwaitingFinalApproval    bool                    `json:"awaiting_final_approval"`
}

// FolderResult is the per-folder entry in a library run's final result.
type FolderResult struct {
	FolderName string       `json:"folder_name"`
	Status     FolderStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
}

// OrganizeLibraryResult is the terminal output of the library coordinator.
type OrganizeLibraryResult struct {
	Stage          WorkflowStage  `json:"stage"`
	Completed      int            `json:"completed"`
	Failed         int            `json:"failed"`
	PendingReview  int            `json:"pending_review"`
	Folders        []FolderResult `json:"folders"`
	Error          string         `json:"error,omitempty"`
}
