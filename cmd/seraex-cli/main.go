// Command seraex-cli drives a running seraex worker fleet from outside a
// workflow: starting a library organize run, polling its progress, and
// answering the three human-in-the-loop signals the workflows pause for.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	seraexclient "github.com/Reclyptor/SERAEX/internal/client"
	"github.com/Reclyptor/SERAEX/internal/config"
	"github.com/Reclyptor/SERAEX/internal/seraex"
	"github.com/Reclyptor/SERAEX/internal/workflow"
)

var (
	flagTemporalAddress string
	flagTemporalNS      string
	flagTaskQueue       string

	flagSeriesSourceDir string
	flagDryRun          bool
	flagConfidence      float64
	flagRunID           string

	flagWorkflowID string
	flagApproved   bool

	flagReviewItemID string
	flagCorrSeason   int
	flagCorrEpisode  int

	flagAddedPaths   []string
	flagRemovedPaths []string
	flagConfirmed    bool
)

var rootCmd = &cobra.Command{
	Use:   "seraex-cli",
	Short: "Operate a seraex library organize run",
	Long:  "seraex-cli starts library organize runs against a seraex Temporal worker and answers the human-in-the-loop signals its coordinators pause for.",
}

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Start a new library organize run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		runID := flagRunID
		if runID == "" {
			runID = "organize-" + uuid.NewString()
		}

		in := workflow.LibraryWorkflowInput{
			RunID:               runID,
			SeriesSourceDir:     flagSeriesSourceDir,
			Roots:               seraex.Roots{Input: cfg.MediaInputRoot, Processing: cfg.MediaProcessingRoot, Staging: cfg.MediaStagingRoot, Output: cfg.MediaOutputRoot},
			ConfidenceThreshold: flagConfidence,
			DryRun:              flagDryRun,
			MkvextractPath:      cfg.MkvextractPath,
			FFmpegPath:          cfg.FFmpegPath,
			AniListGraphQLURL:   cfg.AniListGraphQLURL,
			AnthropicAPIKey:     cfg.AnthropicAPIKey,
			AnthropicModel:      cfg.AnthropicModel,
		}

		id, err := c.StartLibraryOrganize(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("start organize run: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Query a library run's current progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		progress, err := c.GetLibraryProgress(cmd.Context(), flagWorkflowID)
		if err != nil {
			return fmt.Errorf("get progress: %w", err)
		}
		return printJSON(progress)
	},
}

var stagingTreeCmd = &cobra.Command{
	Use:   "staging-tree",
	Short: "Query a library run's staged layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		tree, err := c.GetStagingTree(cmd.Context(), flagWorkflowID)
		if err != nil {
			return fmt.Errorf("get staging tree: %w", err)
		}
		return printJSON(tree)
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Approve or reject a library run's staged layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SendFinalizeSignal(cmd.Context(), flagWorkflowID, flagApproved); err != nil {
			return fmt.Errorf("send finalize signal: %w", err)
		}
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Resolve a low-confidence episode match on a disc coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		decision := seraex.ReviewDecision{
			ReviewItemID: flagReviewItemID,
			Approved:     flagApproved,
		}
		if cmd.Flags().Changed("season") {
			decision.CorrectedSeason = &flagCorrSeason
		}
		if cmd.Flags().Changed("episode") {
			decision.CorrectedEpisode = &flagCorrEpisode
		}

		if err := c.SendReviewDecision(cmd.Context(), flagWorkflowID, decision); err != nil {
			return fmt.Errorf("send review decision: %w", err)
		}
		return nil
	},
}

var confirmDetectionCmd = &cobra.Command{
	Use:   "confirm-detection",
	Short: "Resolve a disc coordinator's cluster detection review",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		confirmation := seraex.DetectionConfirmation{
			Confirmed:    flagConfirmed,
			AddedPaths:   flagAddedPaths,
			RemovedPaths: flagRemovedPaths,
		}
		if err := c.SendDetectionConfirmation(cmd.Context(), flagWorkflowID, confirmation); err != nil {
			return fmt.Errorf("send detection confirmation: %w", err)
		}
		return nil
	},
}

func dial() (*seraexclient.Client, error) {
	return seraexclient.New(flagTemporalAddress, flagTemporalNS, flagTaskQueue)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTemporalAddress, "temporal-address", "localhost:7233", "Temporal frontend host:port")
	rootCmd.PersistentFlags().StringVar(&flagTemporalNS, "temporal-namespace", "default", "Temporal namespace")
	rootCmd.PersistentFlags().StringVar(&flagTaskQueue, "task-queue", "SERA", "Temporal task queue")

	organizeCmd.Flags().StringVar(&flagSeriesSourceDir, "series-dir", "", "absolute path to the series source directory")
	organizeCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "plan the run without copying, moving, or deleting anything")
	organizeCmd.Flags().Float64Var(&flagConfidence, "confidence-threshold", 0.85, "minimum match confidence that skips human review")
	organizeCmd.Flags().StringVar(&flagRunID, "run-id", "", "workflow ID for this run (default: a generated ID)")
	_ = organizeCmd.MarkFlagRequired("series-dir")

	progressCmd.Flags().StringVar(&flagWorkflowID, "workflow-id", "", "library run workflow ID")
	_ = progressCmd.MarkFlagRequired("workflow-id")

	stagingTreeCmd.Flags().StringVar(&flagWorkflowID, "workflow-id", "", "library run workflow ID")
	_ = stagingTreeCmd.MarkFlagRequired("workflow-id")

	finalizeCmd.Flags().StringVar(&flagWorkflowID, "workflow-id", "", "library run workflow ID")
	finalizeCmd.Flags().BoolVar(&flagApproved, "approve", false, "approve the staged layout (otherwise rejected)")
	_ = finalizeCmd.MarkFlagRequired("workflow-id")

	reviewCmd.Flags().StringVar(&flagWorkflowID, "workflow-id", "", "disc coordinator child workflow ID")
	reviewCmd.Flags().StringVar(&flagReviewItemID, "review-item-id", "", "review item to resolve")
	reviewCmd.Flags().BoolVar(&flagApproved, "approve", false, "approve the suggested match (otherwise rejected)")
	reviewCmd.Flags().IntVar(&flagCorrSeason, "season", 0, "corrected season number")
	reviewCmd.Flags().IntVar(&flagCorrEpisode, "episode", 0, "corrected episode number")
	_ = reviewCmd.MarkFlagRequired("workflow-id")
	_ = reviewCmd.MarkFlagRequired("review-item-id")

	confirmDetectionCmd.Flags().StringVar(&flagWorkflowID, "workflow-id", "", "disc coordinator child workflow ID")
	confirmDetectionCmd.Flags().BoolVar(&flagConfirmed, "confirm", false, "confirm the detected cluster split as-is")
	confirmDetectionCmd.Flags().StringSliceVar(&flagAddedPaths, "add", nil, "file paths to add to the episode set")
	confirmDetectionCmd.Flags().StringSliceVar(&flagRemovedPaths, "remove", nil, "file paths to drop from the episode set")
	_ = confirmDetectionCmd.MarkFlagRequired("workflow-id")

	rootCmd.AddCommand(organizeCmd, progressCmd, stagingTreeCmd, finalizeCmd, reviewCmd, confirmDetectionCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
