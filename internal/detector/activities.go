package detector

import (
	"context"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

// DetectInput is the input to the Detect activity.
type DetectInput struct {
	FolderPath string `json:"folder_path"`
}

// DetectActivity wraps the package-level Detect function for registration
// on a Temporal worker.
func DetectActivity(_ context.Context, in DetectInput) (seraex.DetectionResult, error) {
	return Detect(in.FolderPath)
}
