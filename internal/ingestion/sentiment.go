package ingestion

import (
	"strings"

	"github.com/azure/brand-mentions-api/internal/models"
)

var (
	positiveWords = []string{"good", "great", "excellent", "love", "awesome", "fantastic", "helpful", "works", "solved", "success"}
	negativeWords = []string{"bad", "terrible", "awful", "hate", "broken", "error", "fail", "problem", "issue", "bug"}
)

// Classify labels text by counting positive and negative cue words.
func Classify(text string) string {
	text = strings.ToLower(text)

	positiveCount := 0
	negativeCount := 0

	for _, word := range positiveWords {
		if strings.Contains(text, word) {
			positiveCount++
		}
	}

	for _, word := range negativeWords {
		if strings.Contains(text, word) {
			negativeCount++
		}
	}

	if positiveCount > negativeCount {
		return models.SentimentPositive
	} else if negativeCount > positiveCount {
		return models.SentimentNegative
	}

	return models.SentimentNeutral
}
