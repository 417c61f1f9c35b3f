package operations

import (
	"fmt"
	"sync"
	"time"
)

// Pipeline stages reported through Progress.Stage
const (
	StageDetect    = "detect"
	StageBuild     = "build"
	StageAggregate = "aggregate"
)

// Progress is a point-in-time snapshot of a tracked operation
type Progress struct {
	Stage      string        `json:"stage"`
	Current    int           `json:"current"`
	Total      int           `json:"total"`
	Percentage float64       `json:"percentage"`
	Message    string        `json:"message,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	// ETA is the estimated time remaining, empty once the stage is complete
	ETA      string `json:"eta,omitempty"`
	Complete bool   `json:"complete"`
}

// ProgressFunc receives progress snapshots. Calls are serialized by the
// tracker, so the function must not block or call back into it.
type ProgressFunc func(Progress)

// ProgressTracker tracks progress for long-running operations
type ProgressTracker struct {
	Stage     string
	Total     int
	Current   int
	StartTime time.Time
	Message   string
	report    ProgressFunc
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker. report may be nil.
func NewProgressTracker(stage string, total int, report ProgressFunc) *ProgressTracker {
	return &ProgressTracker{
		Stage:     stage,
		Total:     total,
		StartTime: time.Now(),
		report:    report,
	}
}

// Update sets the current progress and notifies the reporter
func (p *ProgressTracker) Update(current int, message string) {
	p.mu.Lock()
	p.Current = current
	p.Message = message
	p.notifyLocked()
	p.mu.Unlock()
}

// Advance adds n to the current progress and notifies the reporter.
// Progress never exceeds Total.
func (p *ProgressTracker) Advance(n int, message string) {
	p.mu.Lock()
	p.Current += n
	if p.Total > 0 && p.Current > p.Total {
		p.Current = p.Total
	}
	p.Message = message
	p.notifyLocked()
	p.mu.Unlock()
}

// Snapshot returns the current progress state
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *ProgressTracker) snapshotLocked() Progress {
	percentage := 0.0
	if p.Total > 0 {
		percentage = float64(p.Current) / float64(p.Total) * 100
	}
	snap := Progress{
		Stage:      p.Stage,
		Current:    p.Current,
		Total:      p.Total,
		Percentage: percentage,
		Message:    p.Message,
		Elapsed:    time.Since(p.StartTime),
		Complete:   p.completeLocked(),
	}
	if !snap.Complete {
		snap.ETA = p.etaLocked()
	}
	return snap
}

func (p *ProgressTracker) notifyLocked() {
	if p.report != nil {
		p.report(p.snapshotLocked())
	}
}

// GetETA calculates the estimated time remaining
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.etaLocked()
}

func (p *ProgressTracker) etaLocked() string {
	if p.Current == 0 || p.Total == 0 {
		return "calculating..."
	}

	elapsed := time.Since(p.StartTime)
	rate := float64(p.Current) / elapsed.Seconds()

	if rate == 0 {
		return "calculating..."
	}

	remaining := float64(p.Total-p.Current) / rate

	if remaining < 60 {
		return fmt.Sprintf("%.0f seconds", remaining)
	} else if remaining < 3600 {
		return fmt.Sprintf("%.1f minutes", remaining/60)
	}
	return fmt.Sprintf("%.1f hours", remaining/3600)
}

// IsComplete returns true if the operation is complete
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completeLocked()
}

func (p *ProgressTracker) completeLocked() bool {
	return p.Current >= p.Total
}
