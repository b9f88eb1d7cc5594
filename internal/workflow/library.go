package workflow

import (
	"fmt"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/Reclyptor/SERAEX/internal/catalogue"
	"github.com/Reclyptor/SERAEX/internal/copyengine"
	"github.com/Reclyptor/SERAEX/internal/naming"
	"github.com/Reclyptor/SERAEX/internal/seraex"
)

// libraryState backs the library coordinator's getProgress and
// getStagingTree query handlers. Mutated only from the workflow's main
// coroutine.
type libraryState struct {
	stage               seraex.WorkflowStage
	copyProgress        *seraex.CopyProgress
	metadataSummary     *seraex.MetadataSummary
	structuringProgress *seraex.StructuringProgress
	outputProgress      *seraex.CopyProgress
	folderStatuses      map[string]seraex.FolderStatus
	expectedCore        int
	resolvedCore        int
	canFinalize         bool
	awaitingApproval    bool
	stagingTree         []seraex.TreeNode
}

func (s *libraryState) progress() seraex.LibraryProgress {
	total, completed, failed, pending, awaitingReview := 0, 0, 0, 0, 0
	for _, status := range s.folderStatuses {
		total++
		switch status {
		case seraex.FolderCompleted:
			completed++
		case seraex.FolderFailed:
			failed++
		case seraex.FolderPending:
			pending++
		case seraex.FolderAwaitingReview, seraex.FolderAwaitingDetectionReview:
			awaitingReview++
		}
	}
	inProgress := total - completed - failed - pending - awaitingReview
	if inProgress < 0 {
		inProgress = 0
	}

	unresolved := s.expectedCore - s.resolvedCore
	if unresolved < 0 {
		unresolved = 0
	}

	return seraex.LibraryProgress{
		Stage:                      s.stage,
		CopyProgress:               s.copyProgress,
		MetadataSummary:            s.metadataSummary,
		StructuringProgress:        s.structuringProgress,
		OutputProgress:             s.outputProgress,
		TotalFolders:               total,
		FoldersCompleted:           completed,
		FoldersFailed:              failed,
		FoldersInProgress:          inProgress,
		FoldersPendingReview:       awaitingReview,
		FolderStatuses:             s.folderStatuses,
		ExpectedCoreEpisodeCount:   s.expectedCore,
		ResolvedCoreEpisodeCount:   s.resolvedCore,
		UnresolvedCoreEpisodeCount: unresolved,
		CanFinalize:                s.canFinalize,
		AwaitingFinalApproval:      s.awaitingApproval,
	}
}

// LibraryWorkflow is the library coordinator (C4): drives copying,
// metadata discovery, per-disc processing, local restructuring, and a
// human-gated finalize into the output root, in strict stage order.
func LibraryWorkflow(ctx workflow.Context, in LibraryWorkflowInput) (seraex.OrganizeLibraryResult, error) {
	logger := workflow.GetLogger(ctx)
	state := &libraryState{stage: seraex.StageCopying, folderStatuses: map[string]seraex.FolderStatus{}}

	if err := workflow.SetQueryHandler(ctx, QueryLibraryProgress, func() (seraex.LibraryProgress, error) {
		return state.progress(), nil
	}); err != nil {
		return seraex.OrganizeLibraryResult{}, fmt.Errorf("register progress query handler: %w", err)
	}
	if err := workflow.SetQueryHandler(ctx, QueryStagingTree, func() ([]seraex.TreeNode, error) {
		return state.stagingTree, nil
	}); err != nil {
		return seraex.OrganizeLibraryResult{}, fmt.Errorf("register staging tree query handler: %w", err)
	}

	var finalizeDecision *seraex.FinalizeDecision
	workflow.Go(ctx, func(ctx workflow.Context) {
		ch := workflow.GetSignalChannel(ctx, SignalFinalize)
		for {
			var decision seraex.FinalizeDecision
			ch.Receive(ctx, &decision)
			finalizeDecision = &decision
		}
	})

	result, err := runLibraryStateMachine(ctx, in, state, &finalizeDecision)
	if err != nil {
		logger.Error("library coordinator failed", "run_id", in.RunID, "error", err)
		state.stage = seraex.StageFailed
		return seraex.OrganizeLibraryResult{Stage: seraex.StageFailed, Error: err.Error()}, nil
	}
	return result, nil
}

func runLibraryStateMachine(ctx workflow.Context, in LibraryWorkflowInput, state *libraryState, finalizeDecision **seraex.FinalizeDecision) (seraex.OrganizeLibraryResult, error) {
	seriesName := naming.CleanShowName(filepath.Base(in.SeriesSourceDir))
	processingSeriesDir := filepath.Join(in.Roots.Processing, in.RunID, seriesName)
	// A dry run never materializes the processing copy (Stage 1 is a
	// CopyDry no-op), so Stage 3's disc children read straight from the
	// original source tree instead of a processing tree that doesn't exist.
	discSourceRoot := processingSeriesDir
	if in.DryRun {
		discSourceRoot = in.SeriesSourceDir
	}

	// Stage 1: copying
	state.stage = seraex.StageCopying
	if err := stageCopying(ctx, in, processingSeriesDir, state); err != nil {
		return seraex.OrganizeLibraryResult{}, err
	}

	// Stage 2: fetching metadata
	state.stage = seraex.StageFetchingMetadata
	metadata, ok, err := stageFetchingMetadata(ctx, in, state)
	if err != nil {
		return seraex.OrganizeLibraryResult{}, err
	}
	if !ok {
		state.stage = seraex.StageFailed
		return seraex.OrganizeLibraryResult{Stage: seraex.StageFailed, Error: "catalogue search returned no seasons"}, nil
	}

	showName := naming.ResolveShowName(firstSeasonEnglish(metadata), firstSeasonRomaji(metadata), in.SeriesSourceDir)

	// Stage 3: processing folders
	state.stage = seraex.StageProcessingFolders
	folderResults, err := stageProcessingFolders(ctx, in, discSourceRoot, showName, metadata, state)
	if err != nil {
		return seraex.OrganizeLibraryResult{}, err
	}

	// Stage 4: structuring
	state.stage = seraex.StageStructuring
	stagingShowDir := filepath.Join(in.Roots.Staging, in.RunID, naming.CleanShowName(showName))
	if err := stageStructuring(ctx, in, discSourceRoot, showName, folderResults, stagingShowDir, state); err != nil {
		return seraex.OrganizeLibraryResult{}, err
	}

	// Stage 5: awaiting finalize
	state.stage = seraex.StageAwaitingFinalize
	foldersFailed := 0
	totalRenamed := 0
	for _, fr := range folderResults {
		if fr.Status == seraex.FolderFailed {
			foldersFailed++
		}
		totalRenamed += fr.renamedCount
	}
	state.canFinalize = foldersFailed == 0 && totalRenamed > 0
	state.awaitingApproval = true

	approved, err := awaitFinalizeDecision(ctx, finalizeDecision, state)
	if err != nil {
		return seraex.OrganizeLibraryResult{}, err
	}
	state.awaitingApproval = false
	if !approved {
		state.stage = seraex.StageFailed
		return seraex.OrganizeLibraryResult{
			Stage:   seraex.StageFailed,
			Folders: toFolderResults(folderResults),
			Error:   "finalize rejected by operator",
		}, nil
	}

	// Stage 6: finalizing
	state.stage = seraex.StageFinalizing
	outputShowDir := filepath.Join(in.Roots.Output, naming.CleanShowName(showName))
	if err := stageFinalizing(ctx, in, stagingShowDir, outputShowDir, processingSeriesDir, state); err != nil {
		state.stage = seraex.StageFailed
		return seraex.OrganizeLibraryResult{Stage: seraex.StageFailed, Folders: toFolderResults(folderResults), Error: err.Error()}, nil
	}

	state.stage = seraex.StageCompleted
	completed, failed, pendingReview := 0, 0, 0
	for _, fr := range folderResults {
		switch fr.Status {
		case seraex.FolderCompleted:
			completed++
		case seraex.FolderFailed:
			failed++
		default:
			pendingReview++
		}
	}
	return seraex.OrganizeLibraryResult{
		Stage:         seraex.StageCompleted,
		Completed:     completed,
		Failed:        failed,
		PendingReview: pendingReview,
		Folders:       toFolderResults(folderResults),
	}, nil
}

func stageCopying(ctx workflow.Context, in LibraryWorkflowInput, processingSeriesDir string, state *libraryState) error {
	copyCtx := withStandardActivityOptions(ctx, 2*time.Hour)

	var listOut ListFilesOutput
	if err := workflow.ExecuteActivity(copyCtx, ListFilesActivity, ListFilesInput{Root: in.SeriesSourceDir}).Get(ctx, &listOut); err != nil {
		return fmt.Errorf("enumerate source series: %w", err)
	}

	totalBytes := int64(0)
	for _, f := range listOut.Files {
		totalBytes += f.SizeBytes
	}
	state.copyProgress = &seraex.CopyProgress{TotalFiles: len(listOut.Files), TotalBytes: totalBytes}

	var out copyengine.CopyOutput
	activityFn := copyengine.Copy
	if in.DryRun {
		activityFn = copyengine.CopyDry
	}
	if err := workflow.ExecuteActivity(copyCtx, activityFn, copyengine.CopyInput{
		Files:      listOut.Files,
		SourceRoot: in.SeriesSourceDir,
		DestRoot:   processingSeriesDir,
	}).Get(ctx, &out); err != nil {
		return fmt.Errorf("copy to processing root: %w", err)
	}
	state.copyProgress = &out.Progress
	return nil
}

func stageFetchingMetadata(ctx workflow.Context, in LibraryWorkflowInput, state *libraryState) (seraex.SeriesMetadata, bool, error) {
	metaCtx := withStandardActivityOptions(ctx, 2*time.Minute)
	searchName := naming.CleanSearchName(filepath.Base(in.SeriesSourceDir))

	state.metadataSummary = &seraex.MetadataSummary{Status: seraex.MetadataSearching}
	var searchOut catalogue.SearchOutput
	if err := workflow.ExecuteActivity(metaCtx, catalogue.SearchSeriesActivity, catalogue.SearchInput{
		GraphQLURL: in.AniListGraphQLURL,
		SearchName: searchName,
	}).Get(ctx, &searchOut); err != nil {
		return seraex.SeriesMetadata{}, false, fmt.Errorf("search series: %w", err)
	}
	if !searchOut.Found {
		return seraex.SeriesMetadata{}, false, nil
	}

	state.metadataSummary = &seraex.MetadataSummary{Status: seraex.MetadataFound}
	// Traversal itself is one activity call (walkRelations recurses
	// server-side of the activity boundary), so status moves straight to
	// MetadataTraversing for the duration of that call.
	state.metadataSummary = &seraex.MetadataSummary{Status: seraex.MetadataTraversing}
	var traverseOut catalogue.TraverseOutput
	if err := workflow.ExecuteActivity(metaCtx, catalogue.TraverseSeasonsActivity, catalogue.TraverseInput{
		GraphQLURL: in.AniListGraphQLURL,
		Seed:       searchOut.Seed,
	}).Get(ctx, &traverseOut); err != nil {
		return seraex.SeriesMetadata{}, false, fmt.Errorf("traverse seasons: %w", err)
	}
	if len(traverseOut.Seasons) == 0 {
		return seraex.SeriesMetadata{}, false, nil
	}

	state.metadataSummary = &seraex.MetadataSummary{Status: seraex.MetadataFetchingEpisodes}
	titlesByID := make(map[int][]string, len(traverseOut.Seasons))
	for _, season := range traverseOut.Seasons {
		var episodesOut catalogue.FetchSeasonEpisodesOutput
		if err := workflow.ExecuteActivity(metaCtx, catalogue.FetchSeasonEpisodesActivity, catalogue.FetchSeasonEpisodesInput{
			GraphQLURL: in.AniListGraphQLURL,
			AnilistID:  season.ID,
		}).Get(ctx, &episodesOut); err != nil {
			return seraex.SeriesMetadata{}, false, fmt.Errorf("fetch season %d episodes: %w", season.ID, err)
		}
		titlesByID[season.ID] = episodesOut.Titles
	}

	metadata := catalogue.BuildSeriesMetadata(traverseOut.Seasons, titlesByID)
	if len(metadata.Seasons) == 0 {
		return seraex.SeriesMetadata{}, false, nil
	}

	state.metadataSummary = &seraex.MetadataSummary{Status: seraex.MetadataComplete, Seasons: metadata.Seasons}
	state.expectedCore = metadata.TotalEpisodes()
	return metadata, true, nil
}

// folderOutcome bundles a disc child workflow's result with the renamed
// count the aggregation step needs, since ProcessFolderResult itself
// doesn't expose a plain integer.
type folderOutcome struct {
	result       seraex.ProcessFolderResult
	renamedCount int
}

func stageProcessingFolders(ctx workflow.Context, in LibraryWorkflowInput, processingSeriesDir, showName string, metadata seraex.SeriesMetadata, state *libraryState) ([]folderOutcome, error) {
	folders, err := discFolderNames(ctx, processingSeriesDir)
	if err != nil {
		return nil, err
	}
	for _, name := range folders {
		state.folderStatuses[name] = seraex.FolderPending
	}

	outcomes := make([]folderOutcome, 0, len(folders))
	selector := workflow.NewSelector(ctx)
	inFlight := 0
	nextIdx := 0

	startOne := func(idx int) {
		name := folders[idx]
		discPath := filepath.Join(processingSeriesDir, name)
		if name == seriesRootSentinel {
			discPath = processingSeriesDir
		}
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: in.RunID + "-disc-" + name,
		})
		future := workflow.ExecuteChildWorkflow(childCtx, DiscWorkflow, DiscWorkflowInput{
			FolderPath:          discPath,
			FolderName:          name,
			SeriesRoot:          processingSeriesDir,
			ShowName:            showName,
			SeriesMetadata:      metadata,
			DryRun:              in.DryRun,
			ConfidenceThreshold: in.ConfidenceThreshold,
			MkvextractPath:      in.MkvextractPath,
			FFmpegPath:          in.FFmpegPath,
			AnthropicAPIKey:     in.AnthropicAPIKey,
			AnthropicModel:      in.AnthropicModel,
		})
		state.folderStatuses[name] = seraex.FolderScanning
		inFlight++
		selector.AddFuture(future, func(f workflow.Future) {
			inFlight--
			var res seraex.ProcessFolderResult
			if err := f.Get(ctx, &res); err != nil {
				res = seraex.ProcessFolderResult{FolderName: name, Status: seraex.FolderFailed, Error: err.Error()}
			}
			state.folderStatuses[name] = res.Status
			state.resolvedCore += len(res.RenamedFiles)
			outcomes = append(outcomes, folderOutcome{result: res, renamedCount: len(res.RenamedFiles)})
		})
	}

	for nextIdx < len(folders) && inFlight < maxConcurrentDiscChildren {
		startOne(nextIdx)
		nextIdx++
	}
	for inFlight > 0 {
		selector.Select(ctx)
		for nextIdx < len(folders) && inFlight < maxConcurrentDiscChildren {
			startOne(nextIdx)
			nextIdx++
		}
	}

	return outcomes, nil
}

const seriesRootSentinel = "."

func discFolderNames(ctx workflow.Context, processingSeriesDir string) ([]string, error) {
	listCtx := withStandardActivityOptions(ctx, time.Minute)
	var names []string
	if err := workflow.ExecuteActivity(listCtx, ListSubdirectoriesActivity, ListSubdirectoriesInput{Root: processingSeriesDir}).Get(ctx, &names); err != nil {
		return nil, fmt.Errorf("list disc folders: %w", err)
	}
	if len(names) == 0 {
		return []string{seriesRootSentinel}, nil
	}
	return names, nil
}

func stageStructuring(ctx workflow.Context, in LibraryWorkflowInput, processingSeriesDir, showName string, outcomes []folderOutcome, stagingShowDir string, state *libraryState) error {
	structureCtx := withStandardActivityOptions(ctx, 30*time.Minute)

	var extras []seraex.SourceFile
	for _, o := range outcomes {
		for _, path := range o.result.UnprocessedFiles {
			rel, err := filepath.Rel(processingSeriesDir, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			extras = append(extras, seraex.SourceFile{
				AbsolutePath: path,
				RelativePath: rel,
				Name:         filepath.Base(path),
			})
		}
	}
	state.structuringProgress = &seraex.StructuringProgress{TotalFiles: len(extras)}

	var structOut StructureOutput
	if err := workflow.ExecuteActivity(structureCtx, StructureActivity, StructureInput{
		SeriesRoot: processingSeriesDir,
		ShowName:   showName,
		ExtraFiles: extras,
		DryRun:     in.DryRun,
	}).Get(ctx, &structOut); err != nil {
		return fmt.Errorf("structure processing tree: %w", err)
	}
	state.structuringProgress.FilesStructured = structOut.EpisodesMoved + structOut.ExtrasCopied

	if in.DryRun {
		// Nothing was actually moved into _structured/ above, so there is
		// nothing on disk to list, copy, or capture a tree of.
		state.outputProgress = &seraex.CopyProgress{}
		return nil
	}

	copyCtx := withStandardActivityOptions(ctx, 2*time.Hour)
	var listOut ListFilesOutput
	if err := workflow.ExecuteActivity(copyCtx, ListFilesActivity, ListFilesInput{Root: structOut.StructuredRoot}).Get(ctx, &listOut); err != nil {
		return fmt.Errorf("list structured tree: %w", err)
	}

	var copyOut copyengine.CopyOutput
	if err := workflow.ExecuteActivity(copyCtx, copyengine.Copy, copyengine.CopyInput{
		Files:      listOut.Files,
		SourceRoot: structOut.StructuredRoot,
		DestRoot:   stagingShowDir,
	}).Get(ctx, &copyOut); err != nil {
		return fmt.Errorf("copy structured tree to staging: %w", err)
	}
	state.outputProgress = &copyOut.Progress

	var tree []seraex.TreeNode
	if err := workflow.ExecuteActivity(copyCtx, CaptureStagingTreeActivity, CaptureStagingTreeInput{Root: stagingShowDir}).Get(ctx, &tree); err != nil {
		return fmt.Errorf("capture staging tree: %w", err)
	}
	state.stagingTree = tree
	return nil
}

func awaitFinalizeDecision(ctx workflow.Context, finalizeDecision **seraex.FinalizeDecision, state *libraryState) (bool, error) {
	for {
		if err := workflow.Await(ctx, func() bool { return *finalizeDecision != nil }); err != nil {
			return false, fmt.Errorf("await finalize signal: %w", err)
		}
		decision := **finalizeDecision
		*finalizeDecision = nil
		if !decision.Approved {
			return false, nil
		}
		if state.canFinalize {
			return true, nil
		}
		// approved but not finalizable yet (e.g. arrived before Stage 3
		// finished failing folders out) — keep waiting for another signal.
	}
}

func stageFinalizing(ctx workflow.Context, in LibraryWorkflowInput, stagingShowDir, outputShowDir, processingSeriesDir string, state *libraryState) error {
	if in.DryRun {
		// Stage 4 never populated the staging tree in dry-run mode, so
		// there is nothing to list, copy, verify, or clean up here.
		state.outputProgress = &seraex.CopyProgress{}
		return nil
	}

	copyCtx := withStandardActivityOptions(ctx, 2*time.Hour)

	var listOut ListFilesOutput
	if err := workflow.ExecuteActivity(copyCtx, ListFilesActivity, ListFilesInput{Root: stagingShowDir}).Get(ctx, &listOut); err != nil {
		return fmt.Errorf("list staging tree: %w", err)
	}

	var copyOut copyengine.CopyOutput
	if err := workflow.ExecuteActivity(copyCtx, copyengine.Copy, copyengine.CopyInput{
		Files:      listOut.Files,
		SourceRoot: stagingShowDir,
		DestRoot:   outputShowDir,
	}).Get(ctx, &copyOut); err != nil {
		return fmt.Errorf("copy staging to output: %w", err)
	}
	state.outputProgress = &copyOut.Progress

	var verifyResult copyengine.VerifyResult
	if err := workflow.ExecuteActivity(copyCtx, copyengine.VerifyActivity, copyengine.VerifyInput{
		SourceRoot: stagingShowDir,
		OutputRoot: outputShowDir,
	}).Get(ctx, &verifyResult); err != nil {
		return fmt.Errorf("verify output tree: %w", err)
	}
	if !verifyResult.Verified {
		return fmt.Errorf("output verification found %d missing/mismatched files", len(verifyResult.Missing))
	}

	cleanupCtx := withStandardActivityOptions(ctx, 5*time.Minute)
	return workflow.ExecuteActivity(cleanupCtx, CleanupActivity, CleanupInput{
		Paths: []string{filepath.Join(in.Roots.Staging, in.RunID), processingSeriesDir},
	}).Get(ctx, nil)
}

func toFolderResults(outcomes []folderOutcome) []seraex.FolderResult {
	out := make([]seraex.FolderResult, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, seraex.FolderResult{
			FolderName: o.result.FolderName,
			Status:     o.result.Status,
			Error:      o.result.Error,
		})
	}
	return out
}

func firstSeasonEnglish(m seraex.SeriesMetadata) string {
	if len(m.Seasons) == 0 {
		return ""
	}
	return m.Seasons[0].TitleEnglish
}

func firstSeasonRomaji(m seraex.SeriesMetadata) string {
	if len(m.Seasons) == 0 {
		return ""
	}
	return m.Seasons[0].TitleRomaji
}

