// Command seraex runs the Temporal worker that hosts the library and disc
// coordinator workflows plus every activity they depend on: copying,
// detection, subtitle extraction, catalogue lookups, LLM matching, and
// filesystem restructuring.
package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/Reclyptor/SERAEX/internal/catalogue"
	"github.com/Reclyptor/SERAEX/internal/config"
	"github.com/Reclyptor/SERAEX/internal/copyengine"
	"github.com/Reclyptor/SERAEX/internal/detector"
	"github.com/Reclyptor/SERAEX/internal/llmmatch"
	"github.com/Reclyptor/SERAEX/internal/logging"
	"github.com/Reclyptor/SERAEX/internal/subtitles"
	seraexworkflow "github.com/Reclyptor/SERAEX/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("seraex: load config: %v", err)
	}

	zl := logging.New(cfg.LogLevel)
	zl.Info().
		Str("temporal_address", cfg.TemporalAddress).
		Str("task_queue", cfg.TemporalTaskQueue).
		Msg("seraex worker starting")

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.TemporalAdapter{Logger: zl},
	})
	if err != nil {
		log.Fatalf("seraex: dial temporal: %v", err)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.MaxConcurrentWorkflowTasks,
	})

	w.RegisterWorkflow(seraexworkflow.LibraryWorkflow)
	w.RegisterWorkflow(seraexworkflow.DiscWorkflow)

	w.RegisterActivity(copyengine.Copy)
	w.RegisterActivity(copyengine.CopyDry)
	w.RegisterActivity(copyengine.VerifyActivity)
	w.RegisterActivity(detector.DetectActivity)
	w.RegisterActivity(subtitles.ExtractActivity)
	w.RegisterActivity(catalogue.SearchSeriesActivity)
	w.RegisterActivity(catalogue.TraverseSeasonsActivity)
	w.RegisterActivity(catalogue.FetchSeasonEpisodesActivity)
	w.RegisterActivity(llmmatch.MatchEpisodesActivity)
	w.RegisterActivity(seraexworkflow.RenameEpisodeActivity)
	w.RegisterActivity(seraexworkflow.StructureActivity)
	w.RegisterActivity(seraexworkflow.CaptureStagingTreeActivity)
	w.RegisterActivity(seraexworkflow.CleanupActivity)
	w.RegisterActivity(seraexworkflow.ListFilesActivity)
	w.RegisterActivity(seraexworkflow.ListSubdirectoriesActivity)

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("seraex: worker run: %v", err)
	}
}
