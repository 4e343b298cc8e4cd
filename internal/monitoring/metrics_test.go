package monitoring

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.PostIngested(&models.Post{Source: "reddit", Sentiment: models.SentimentPositive})
	r.PostIngested(&models.Post{Source: "reddit", Sentiment: models.SentimentNegative})
	r.DuplicateSkipped()
	r.LinksCreated(3)
	r.NotificationResult(nil)
	r.NotificationResult(errors.New("smtp down"))
	r.RunCompleted(2*time.Second, 1)

	snapshot := r.Snapshot()
	assert.Equal(t, 2, snapshot.PostsIngested)
	assert.Equal(t, 1, snapshot.DuplicatesSkipped)
	assert.Equal(t, 3, snapshot.LinksCreated)
	assert.Equal(t, 1, snapshot.NotificationsSent)
	assert.Equal(t, 1, snapshot.NotificationsFailed)
	assert.Equal(t, 2, snapshot.SourceMetrics["reddit"])
	assert.Equal(t, 1, snapshot.ErrorCount)
	assert.Equal(t, "2s", snapshot.LastRunDuration)
	assert.False(t, r.LastRunTime().IsZero())
}

func TestRecorder_SnapshotIsCopy(t *testing.T) {
	r := NewRecorder()
	r.PostIngested(&models.Post{Source: "hackernews", Sentiment: models.SentimentNeutral})

	snapshot := r.Snapshot()
	snapshot.SourceMetrics["hackernews"] = 99

	assert.Equal(t, 1, r.Snapshot().SourceMetrics["hackernews"])
}

func TestRecorder_ConcurrentUse(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.LinksCreated(1)
			r.NotificationResult(nil)
		}()
	}
	wg.Wait()

	var decoded models.Metrics
	require.NoError(t, json.Unmarshal([]byte(r.GetMetrics()), &decoded))
	assert.Equal(t, 50, decoded.LinksCreated)
	assert.Equal(t, 50, decoded.NotificationsSent)
}
