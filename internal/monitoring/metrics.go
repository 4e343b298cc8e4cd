package monitoring

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
)

// Recorder accumulates ingestion and matching metrics. It is safe for
// concurrent use; notification goroutines report into it.
type Recorder struct {
	metrics *models.Metrics
	mu      sync.RWMutex
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{
		metrics: &models.Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}
}

// PostIngested counts one stored post.
func (r *Recorder) PostIngested(post *models.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.PostsIngested++
	r.metrics.SourceMetrics[post.Source]++
	r.metrics.SentimentBreakdown[post.Sentiment]++
}

func (r *Recorder) DuplicateSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.DuplicatesSkipped++
}

func (r *Recorder) LinksCreated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.LinksCreated += n
}

// NotificationResult records the outcome of one dispatch.
func (r *Recorder) NotificationResult(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.metrics.NotificationsFailed++
		return
	}
	r.metrics.NotificationsSent++
}

// RunCompleted records a finished source polling run.
func (r *Recorder) RunCompleted(duration time.Duration, errorCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.LastRun = time.Now()
	r.metrics.LastRunDuration = duration.String()
	r.metrics.ErrorCount += errorCount
}

// LastRunTime returns when polling last finished, or the zero time.
func (r *Recorder) LastRunTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics.LastRun
}

// Snapshot returns a copy of the current metrics
func (r *Recorder) Snapshot() models.Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := *r.metrics
	snapshot.SourceMetrics = make(map[string]int, len(r.metrics.SourceMetrics))
	for k, v := range r.metrics.SourceMetrics {
		snapshot.SourceMetrics[k] = v
	}
	snapshot.SentimentBreakdown = make(map[string]int, len(r.metrics.SentimentBreakdown))
	for k, v := range r.metrics.SentimentBreakdown {
		snapshot.SentimentBreakdown[k] = v
	}
	return snapshot
}

// GetMetrics returns current metrics as JSON
func (r *Recorder) GetMetrics() string {
	snapshot := r.Snapshot()
	data, _ := json.MarshalIndent(snapshot, "", "  ")
	return string(data)
}
