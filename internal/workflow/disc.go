package workflow

import (
	"fmt"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Reclyptor/SERAEX/internal/detector"
	"github.com/Reclyptor/SERAEX/internal/llmmatch"
	"github.com/Reclyptor/SERAEX/internal/seraex"
	"github.com/Reclyptor/SERAEX/internal/subtitles"
)

// seasonEpisodeKey identifies a (season, episode) slot a disc's matches can
// compete for. spec.md §9 leaves duplicate LLM assignments unresolved by
// design; this coordinator treats the first high-confidence match to claim a
// slot as authoritative and routes every later match for the same slot to
// human review rather than silently overwriting the first rename.
type seasonEpisodeKey struct {
	season  int
	episode int
}

var standardRetryPolicy = &temporal.RetryPolicy{
	InitialInterval:    5 * time.Second,
	BackoffCoefficient: 2,
	MaximumAttempts:    3,
}

func withStandardActivityOptions(ctx workflow.Context, startToClose time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: startToClose,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy:         standardRetryPolicy,
	})
}

// discState carries everything the disc coordinator's query handler needs
// to answer getProgress without touching workflow state directly from the
// handler closure's perspective — it's updated only from the workflow
// goroutine, never concurrently, so no locking is required.
type discState struct {
	status               seraex.FolderStatus
	totalVideoFiles      *int
	detectedEpisodeCount *int
	detectionConfidence  *seraex.Confidence
	totalEpisodeFiles    *int
	subtitlesExtracted   int
	currentFile          *string
	matchesFound         *int
	totalToMatch         *int
	episodesCopied       int
	totalEpisodesToCopy  *int
	pendingReviews       []seraex.ReviewItem
}

func (s *discState) progress(folderName string) seraex.DiscProgress {
	return seraex.DiscProgress{
		FolderName:           folderName,
		Status:               s.status,
		TotalVideoFiles:      s.totalVideoFiles,
		DetectedEpisodeCount: s.detectedEpisodeCount,
		DetectionConfidence:  s.detectionConfidence,
		TotalEpisodeFiles:    s.totalEpisodeFiles,
		SubtitlesExtracted:   s.subtitlesExtracted,
		CurrentFile:          s.currentFile,
		MatchesFound:         s.matchesFound,
		TotalToMatch:         s.totalToMatch,
		EpisodesCopied:       s.episodesCopied,
		TotalEpisodesToCopy:  s.totalEpisodesToCopy,
		PendingReviews:       s.pendingReviews,
	}
}

// DiscWorkflow is the disc coordinator (C3): scans one folder, detects its
// episode cluster, extracts subtitles, asks the LLM matcher to assign
// episodes, renames high-confidence matches, and routes low-confidence
// matches through a human review loop before completing.
func DiscWorkflow(ctx workflow.Context, in DiscWorkflowInput) (seraex.ProcessFolderResult, error) {
	logger := workflow.GetLogger(ctx)
	state := &discState{status: seraex.FolderScanning}

	if err := workflow.SetQueryHandler(ctx, QueryDiscProgress, func() (seraex.DiscProgress, error) {
		return state.progress(in.FolderName), nil
	}); err != nil {
		return seraex.ProcessFolderResult{}, fmt.Errorf("register query handler: %w", err)
	}

	resolvedReviews := map[string]seraex.ReviewDecision{}
	var detectionConfirmation *seraex.DetectionConfirmation
	workflow.Go(ctx, func(ctx workflow.Context) {
		reviewCh := workflow.GetSignalChannel(ctx, SignalReviewDecision)
		detectionCh := workflow.GetSignalChannel(ctx, SignalDetectionConfirmation)
		selector := workflow.NewSelector(ctx)
		selector.AddReceive(reviewCh, func(c workflow.ReceiveChannel, more bool) {
			var decision seraex.ReviewDecision
			c.Receive(ctx, &decision)
			resolvedReviews[decision.ReviewItemID] = decision
		})
		selector.AddReceive(detectionCh, func(c workflow.ReceiveChannel, more bool) {
			var confirmation seraex.DetectionConfirmation
			c.Receive(ctx, &confirmation)
			detectionConfirmation = &confirmation
		})
		for {
			selector.Select(ctx)
		}
	})

	result, err := runDiscStateMachine(ctx, in, state, &detectionConfirmation, resolvedReviews)
	if err != nil {
		logger.Error("disc coordinator failed", "folder", in.FolderName, "error", err)
		state.status = seraex.FolderFailed
		return seraex.ProcessFolderResult{
			FolderName: in.FolderName,
			Status:     seraex.FolderFailed,
			Error:      err.Error(),
		}, nil
	}
	return result, nil
}

func runDiscStateMachine(ctx workflow.Context, in DiscWorkflowInput, state *discState, detectionConfirmation **seraex.DetectionConfirmation, resolvedReviews map[string]seraex.ReviewDecision) (seraex.ProcessFolderResult, error) {
	// scanning -> detect
	state.status = seraex.FolderScanning
	detectCtx := withStandardActivityOptions(ctx, 5*time.Minute)
	var detection seraex.DetectionResult
	if err := workflow.ExecuteActivity(detectCtx, detector.DetectActivity, detector.DetectInput{FolderPath: in.FolderPath}).Get(ctx, &detection); err != nil {
		return seraex.ProcessFolderResult{}, fmt.Errorf("detect: %w", err)
	}

	total := len(detection.Episodes) + len(detection.NonEpisodes)
	state.totalVideoFiles = &total
	episodeCount := len(detection.Episodes)
	state.detectedEpisodeCount = &episodeCount
	confidence := detection.Confidence
	state.detectionConfidence = &confidence

	episodes := detection.Episodes
	if detection.Confidence != seraex.ConfidenceHigh && total > 0 {
		state.status = seraex.FolderAwaitingDetectionReview
		if err := workflow.Await(ctx, func() bool { return *detectionConfirmation != nil }); err != nil {
			return seraex.ProcessFolderResult{}, fmt.Errorf("await detection confirmation: %w", err)
		}
		episodes = applyDetectionConfirmation(detection, **detectionConfirmation)
	}

	// extracting
	state.status = seraex.FolderExtracting
	subtitleByPath, unprocessed, err := extractSubtitles(ctx, in, episodes, state)
	if err != nil {
		return seraex.ProcessFolderResult{}, err
	}
	if len(subtitleByPath) == 0 {
		return seraex.ProcessFolderResult{}, fmt.Errorf("subtitle extraction yielded zero usable files for %s", in.FolderName)
	}

	// matching
	state.status = seraex.FolderMatching
	matches, err := matchEpisodes(ctx, in, episodes, subtitleByPath)
	if err != nil {
		return seraex.ProcessFolderResult{}, err
	}
	matchCount := len(matches)
	state.matchesFound = &matchCount
	total2 := len(episodes)
	state.totalToMatch = &total2

	// renaming
	state.status = seraex.FolderRenaming
	renamed, reviewItems, err := renameHighConfidence(ctx, in, matches, subtitleByPath, state)
	if err != nil {
		return seraex.ProcessFolderResult{}, err
	}

	if len(reviewItems) > 0 {
		state.status = seraex.FolderAwaitingReview
		state.pendingReviews = reviewItems
		moreRenamed, err := resolveReviews(ctx, in, reviewItems, resolvedReviews, state)
		if err != nil {
			return seraex.ProcessFolderResult{}, err
		}
		renamed = append(renamed, moreRenamed...)
		state.pendingReviews = nil
	}

	state.status = seraex.FolderCompleted
	var episodeOriginalPaths []string
	isEpisode := map[string]bool{}
	for _, e := range episodes {
		episodeOriginalPaths = append(episodeOriginalPaths, e.AbsolutePath)
		isEpisode[e.AbsolutePath] = true
	}
	// Video files outside the final episode set are reported as unprocessed
	// too, so the library's structuring stage copies them into Extras/.
	for _, f := range append(append([]seraex.SourceFile(nil), detection.Episodes...), detection.NonEpisodes...) {
		if !isEpisode[f.AbsolutePath] {
			unprocessed = append(unprocessed, f.AbsolutePath)
		}
	}

	return seraex.ProcessFolderResult{
		FolderName:           in.FolderName,
		Status:               seraex.FolderCompleted,
		RenamedFiles:         renamed,
		EpisodeOriginalPaths: episodeOriginalPaths,
		UnprocessedFiles:     unprocessed,
	}, nil
}

// applyDetectionConfirmation resolves the final episode set after a human
// confirms a medium/low confidence split: start from every video file the
// detector saw (both its episode and non-episode guesses), add back any
// path the operator named in AddedPaths, then drop anything in
// RemovedPaths.
func applyDetectionConfirmation(detection seraex.DetectionResult, confirmation seraex.DetectionConfirmation) []seraex.SourceFile {
	byPath := map[string]seraex.SourceFile{}
	for _, f := range detection.Episodes {
		byPath[f.AbsolutePath] = f
	}
	for _, f := range detection.NonEpisodes {
		byPath[f.AbsolutePath] = f
	}
	for _, p := range confirmation.AddedPaths {
		if _, ok := byPath[p]; !ok {
			byPath[p] = seraex.SourceFile{AbsolutePath: p, Name: filepath.Base(p)}
		}
	}
	removed := map[string]bool{}
	for _, p := range confirmation.RemovedPaths {
		removed[p] = true
	}
	var final []seraex.SourceFile
	for path, f := range byPath {
		if removed[path] {
			continue
		}
		final = append(final, f)
	}
	return final
}

func extractSubtitles(ctx workflow.Context, in DiscWorkflowInput, episodes []seraex.SourceFile, state *discState) (map[string]subtitles.SubtitleInput, []string, error) {
	extractCtx := withStandardActivityOptions(ctx, 5*time.Minute)

	type extraction struct {
		file   seraex.SourceFile
		future workflow.Future
	}
	futures := make([]extraction, 0, len(episodes))
	for _, f := range episodes {
		future := workflow.ExecuteActivity(extractCtx, subtitles.ExtractActivity, subtitles.ExtractInput{
			MkvextractPath: in.MkvextractPath,
			FFmpegPath:     in.FFmpegPath,
			CacheRoot:      in.SeriesRoot + "/_subtitles",
			DiscFolder:     in.FolderName,
			VideoPath:      f.AbsolutePath,
		})
		futures = append(futures, extraction{file: f, future: future})
	}

	subtitleByPath := map[string]subtitles.SubtitleInput{}
	var unprocessed []string
	for _, ex := range futures {
		var out subtitles.ExtractOutput
		if err := ex.future.Get(ctx, &out); err != nil {
			unprocessed = append(unprocessed, ex.file.AbsolutePath)
			continue
		}
		if !out.Found {
			unprocessed = append(unprocessed, ex.file.AbsolutePath)
			continue
		}
		subtitleByPath[ex.file.AbsolutePath] = subtitles.SubtitleInput{
			FileName: ex.file.Name,
			FilePath: ex.file.AbsolutePath,
			Content:  out.Result.Content,
		}
		state.subtitlesExtracted++
	}
	return subtitleByPath, unprocessed, nil
}

func matchEpisodes(ctx workflow.Context, in DiscWorkflowInput, episodes []seraex.SourceFile, subtitleByPath map[string]subtitles.SubtitleInput) ([]seraex.EpisodeMatch, error) {
	matchCtx := withStandardActivityOptions(ctx, 3*time.Minute)

	var inputs []subtitles.SubtitleInput
	for _, f := range episodes {
		if s, ok := subtitleByPath[f.AbsolutePath]; ok {
			inputs = append(inputs, s)
		}
	}

	var out llmmatch.MatchOutput
	err := workflow.ExecuteActivity(matchCtx, llmmatch.MatchEpisodesActivity, llmmatch.MatchInput{
		APIKey:    in.AnthropicAPIKey,
		Model:     in.AnthropicModel,
		Subtitles: inputs,
		Metadata:  in.SeriesMetadata,
	}).Get(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("match episodes: %w", err)
	}
	return out.Matches, nil
}

func renameHighConfidence(ctx workflow.Context, in DiscWorkflowInput, matches []seraex.EpisodeMatch, subtitleByPath map[string]subtitles.SubtitleInput, state *discState) ([]seraex.RenamedFile, []seraex.ReviewItem, error) {
	renameCtx := withStandardActivityOptions(ctx, time.Minute)
	showName := in.ShowName

	claimed := map[seasonEpisodeKey]bool{}

	var renamed []seraex.RenamedFile
	var reviewItems []seraex.ReviewItem
	for _, m := range matches {
		key := seasonEpisodeKey{season: m.SeasonNumber, episode: m.EpisodeNumber}
		if m.Confidence >= in.ConfidenceThreshold && !claimed[key] {
			claimed[key] = true
			var out RenameEpisodeOutput
			if err := workflow.ExecuteActivity(renameCtx, RenameEpisodeActivity, RenameEpisodeInput{
				SourcePath:    m.FilePath,
				SeriesRoot:    in.SeriesRoot,
				ShowName:      showName,
				SeasonNumber:  m.SeasonNumber,
				EpisodeNumber: m.EpisodeNumber,
				EpisodeTitle:  m.EpisodeTitle,
				DryRun:        in.DryRun,
			}).Get(ctx, &out); err != nil {
				return nil, nil, fmt.Errorf("rename episode %s: %w", m.FileName, err)
			}
			renamed = append(renamed, seraex.RenamedFile{
				OriginalPath:  m.FilePath,
				NewPath:       out.NewPath,
				NewFileName:   filepath.Base(out.NewPath),
				SeasonNumber:  m.SeasonNumber,
				EpisodeNumber: m.EpisodeNumber,
			})
			state.episodesCopied++
			continue
		}

		reasoning := m.Reasoning
		if claimed[key] {
			reasoning = fmt.Sprintf("season %d episode %d already assigned to another file in this folder: %s", m.SeasonNumber, m.EpisodeNumber, reasoning)
		}
		snippet := reasoning
		if s, ok := subtitleByPath[m.FilePath]; ok {
			snippet = truncateSnippet(s.Content, 500)
		}
		reviewItems = append(reviewItems, seraex.ReviewItem{
			ID:                in.FolderName + "-" + m.FileName,
			File:              seraex.SourceFile{AbsolutePath: m.FilePath, Name: m.FileName},
			SuggestedSeason:   m.SeasonNumber,
			SuggestedEpisode:  m.EpisodeNumber,
			Confidence:        m.Confidence,
			Reasoning:         reasoning,
			DialogueSnippet:   snippet,
			AvailableSeasons:  availableSeasons(in.SeriesMetadata),
			AvailableEpisodes: availableEpisodes(in.SeriesMetadata),
		})
	}
	return renamed, reviewItems, nil
}

func resolveReviews(ctx workflow.Context, in DiscWorkflowInput, items []seraex.ReviewItem, resolved map[string]seraex.ReviewDecision, state *discState) ([]seraex.RenamedFile, error) {
	renameCtx := withStandardActivityOptions(ctx, time.Minute)
	showName := in.ShowName

	var renamed []seraex.RenamedFile
	for _, item := range items {
		for {
			if err := workflow.Await(ctx, func() bool {
				_, ok := resolved[item.ID]
				return ok
			}); err != nil {
				return nil, fmt.Errorf("await review decision for %s: %w", item.ID, err)
			}
			decision := resolved[item.ID]
			delete(resolved, item.ID)

			if !decision.Approved {
				continue
			}

			season := item.SuggestedSeason
			if decision.CorrectedSeason != nil {
				season = *decision.CorrectedSeason
			}
			episode := item.SuggestedEpisode
			if decision.CorrectedEpisode != nil {
				episode = *decision.CorrectedEpisode
			}
			title := in.SeriesMetadata.EpisodeTitle(season, episode)

			var out RenameEpisodeOutput
			if err := workflow.ExecuteActivity(renameCtx, RenameEpisodeActivity, RenameEpisodeInput{
				SourcePath:    item.File.AbsolutePath,
				SeriesRoot:    in.SeriesRoot,
				ShowName:      showName,
				SeasonNumber:  season,
				EpisodeNumber: episode,
				EpisodeTitle:  title,
				DryRun:        in.DryRun,
			}).Get(ctx, &out); err != nil {
				return nil, fmt.Errorf("rename reviewed episode %s: %w", item.File.Name, err)
			}
			renamed = append(renamed, seraex.RenamedFile{
				OriginalPath:  item.File.AbsolutePath,
				NewPath:       out.NewPath,
				NewFileName:   filepath.Base(out.NewPath),
				SeasonNumber:  season,
				EpisodeNumber: episode,
			})
			state.episodesCopied++
			break
		}
	}
	return renamed, nil
}

func truncateSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func availableSeasons(metadata seraex.SeriesMetadata) []int {
	out := make([]int, 0, len(metadata.Seasons))
	for _, s := range metadata.Seasons {
		out = append(out, s.SeasonNumber)
	}
	return out
}

func availableEpisodes(metadata seraex.SeriesMetadata) []int {
	var out []int
	for _, s := range metadata.Seasons {
		for _, e := range s.Episodes {
			out = append(out, e.Number)
		}
	}
	return out
}

