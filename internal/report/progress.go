package report

import (
	"fmt"
	"math"
	"time"

	"github.com/ignite/mailchimp-reporter/internal/pkg/logger"
)

// Stage identifies a pipeline phase in a progress update.
type Stage string

const (
	StageInitializing        Stage = "Initializing"
	StageFetchingCampaigns   Stage = "FetchingCampaigns"
	StageFilteringCampaigns  Stage = "FilteringCampaigns"
	StageProcessingCampaigns Stage = "ProcessingCampaigns"
	StageFinalizingReport    Stage = "FinalizingReport"
	StageSavingReport        Stage = "SavingReport"
	StageComplete            Stage = "Complete"
)

// ProgressUpdate is one staged progress record published to the
// observer and accumulated into the final response.
type ProgressUpdate struct {
	Stage         Stage    `json:"stage"`
	Progress      int      `json:"progress"`
	Message       string   `json:"message"`
	TimeRemaining *float64 `json:"time_remaining,omitempty"`
}

// ProgressEvent is the observer event name for progress updates.
const ProgressEvent = "report-progress"

// progressEmitter publishes staged updates to the observer and keeps
// the history for the final response. Single producer: owned by the
// in-flight generation.
type progressEmitter struct {
	observer Observer
	started  time.Time
	history  []ProgressUpdate
}

func newProgressEmitter(observer Observer) *progressEmitter {
	return &progressEmitter{
		observer: observer,
		started:  time.Now(),
	}
}

func (e *progressEmitter) emit(stage Stage, progress int, message string, timeRemaining *float64) {
	update := ProgressUpdate{
		Stage:         stage,
		Progress:      progress,
		Message:       message,
		TimeRemaining: timeRemaining,
	}
	e.history = append(e.history, update)

	if e.observer == nil {
		return
	}
	if err := e.observer.Emit(ProgressEvent, update); err != nil {
		// Observer errors never fail the pipeline
		logger.Warn("progress emit failed", "stage", string(stage), "error", err)
	}
}

// emitProcessing publishes the per-campaign update for campaign index
// i (0-based) in a filtered set of size n. Progress advances linearly
// from 40 to 80; the time estimate is a running average of elapsed
// wall-clock per campaign, rounded up, seeded with half a second per
// remaining campaign before any has finished.
func (e *progressEmitter) emitProcessing(i, n int) {
	progress := 40 + i*40/n

	var remaining float64
	if i == 0 {
		remaining = 0.5 * float64(n)
	} else {
		avgPerCampaign := time.Since(e.started).Seconds() / float64(i)
		remaining = math.Ceil(avgPerCampaign * float64(n-i))
	}

	message := fmt.Sprintf("Processing campaign %d of %d", i+1, n)
	e.emit(StageProcessingCampaigns, progress, message, &remaining)
}

// seconds returns a pointer to a fixed time-remaining estimate.
func seconds(v float64) *float64 { return &v }
