package copyengine

import (
	"context"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

// syncSink is a ProgressSink that accumulates into a seraex.CopyProgress
// under a mutex, suitable for reporting back from an activity via
// activity.RecordHeartbeat's detail payload or a final return value.
type syncSink struct {
	mu       sync.Mutex
	progress seraex.CopyProgress
}

func newSyncSink(totalFiles int, totalBytes int64) *syncSink {
	return &syncSink{progress: seraex.CopyProgress{TotalFiles: totalFiles, TotalBytes: totalBytes}}
}

func (s *syncSink) FileStarted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.CurrentFiles = append(s.progress.CurrentFiles, name)
}

func (s *syncSink) FileCompleted(name string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.FilesCopied++
	s.progress.BytesCopied += size
	for i, n := range s.progress.CurrentFiles {
		if n == name {
			s.progress.CurrentFiles = append(s.progress.CurrentFiles[:i], s.progress.CurrentFiles[i+1:]...)
			break
		}
	}
}

func (s *syncSink) snapshot() seraex.CopyProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := append([]string(nil), s.progress.CurrentFiles...)
	p := s.progress
	p.CurrentFiles = cur
	return p
}

// CopyInput is the input to the Copy and CopyDry activities.
type CopyInput struct {
	Files      []seraex.SourceFile `json:"files"`
	SourceRoot string              `json:"source_root"`
	DestRoot   string              `json:"dest_root"`
}

// CopyOutput is the output of the Copy and CopyDry activities.
type CopyOutput struct {
	Progress seraex.CopyProgress `json:"progress"`
}

const heartbeatInterval = 30 * time.Second

// Copy is the activity wrapping Engine.Copy. It records a heartbeat at
// least every 30s so single-file transfers of many gigabytes are not
// failed by the activity's heartbeat timeout, per spec.md §4.1 and §5.
func Copy(ctx context.Context, in CopyInput) (CopyOutput, error) {
	var totalBytes int64
	for _, f := range in.Files {
		totalBytes += f.SizeBytes
	}
	sink := newSyncSink(len(in.Files), totalBytes)

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, sink.snapshot())
			case <-stopHeartbeat:
				return
			}
		}
	}()

	heartbeat := func() {
		activity.RecordHeartbeat(ctx, sink.snapshot())
	}

	engine := New()
	if err := engine.Copy(ctx, in.Files, in.SourceRoot, in.DestRoot, sink, heartbeat, false); err != nil {
		return CopyOutput{}, err
	}
	return CopyOutput{Progress: sink.snapshot()}, nil
}

// CopyDry is the dry-run counterpart of Copy: it reports the batch's totals
// without touching any heartbeat ticker or performing I/O, since Engine.Copy
// short-circuits immediately on a dry run. Kept as its own activity (rather
// than a flag on Copy) so a dry-run batch never starts the heartbeat ticker
// a real transfer needs.
func CopyDry(ctx context.Context, in CopyInput) (CopyOutput, error) {
	var totalBytes int64
	for _, f := range in.Files {
		totalBytes += f.SizeBytes
	}
	engine := New()
	if err := engine.Copy(ctx, in.Files, in.SourceRoot, in.DestRoot, nil, nil, true); err != nil {
		return CopyOutput{}, err
	}
	return CopyOutput{Progress: seraex.CopyProgress{TotalFiles: len(in.Files), TotalBytes: totalBytes}}, nil
}

// VerifyInput is the input to the Verify activity.
type VerifyInput struct {
	SourceRoot string `json:"source_root"`
	OutputRoot string `json:"output_root"`
}

// VerifyActivity is the activity wrapping the package-level Verify function.
func VerifyActivity(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	return Verify(in.SourceRoot, in.OutputRoot)
}
