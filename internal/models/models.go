package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Alert statuses
const (
	AlertStatusActive   = "ACTIVE"
	AlertStatusInactive = "INACTIVE"
)

// Alert severities
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Post sentiments
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Case study statuses
const (
	CaseStudyUnresolved = "Unresolved"
	CaseStudyResolved   = "Resolved"
)

// DateRangeNotApplicable is stored on case studies whose alert had no posts.
const DateRangeNotApplicable = "N/A"

// User owns alerts and case studies
type User struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username             string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email                string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone                *string   `gorm:"size:32;uniqueIndex" json:"phone,omitempty"`
	PasswordHash         string    `gorm:"not null" json:"-"`
	NotificationsEnabled bool      `gorm:"not null" json:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	Alerts []Alert `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Alert is a keyword and platform watch rule over incoming posts
type Alert struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `json:"description"`
	Severity    string                      `gorm:"size:16;not null;default:'Medium';index" json:"severity"`
	Status      string                      `gorm:"size:16;not null;default:'ACTIVE';index" json:"status"`
	Keywords    datatypes.JSONSlice[string] `gorm:"not null" json:"keywords"`
	Platforms   datatypes.JSONSlice[string] `gorm:"not null" json:"platforms"`
	PostCount   int64                       `gorm:"not null;default:0" json:"post_count"`
	UserID      uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt   time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// IsActive reports whether the alert takes part in matching.
func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// Post is an ingested external mention
type Post struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Content     string    `json:"content"`
	Source      string    `gorm:"size:64" json:"source"`
	SourceURL   string    `gorm:"column:source_url;size:2048;not null;uniqueIndex" json:"source_url"`
	Sentiment   string    `gorm:"size:16;not null;default:'NEUTRAL';index" json:"sentiment"`
	Platform    string    `gorm:"size:64;not null;index" json:"platform"`
	PublishedAt time.Time `gorm:"not null;index" json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CaseStudy is a frozen snapshot of one alert's matches
type CaseStudy struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Summary   string     `json:"summary"`
	PostCount int64      `gorm:"not null;default:0" json:"post_count"`
	DateRange string     `gorm:"size:64" json:"date_range"`
	Status    string     `gorm:"size:16;not null;default:'Unresolved';index" json:"status"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	AlertID   *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"alert_id"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User  *User  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Alert *Alert `gorm:"foreignKey:AlertID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}

// AlertPost links a post to an alert that matched it
type AlertPost struct {
	AlertID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

// CaseStudyPost freezes a post into a case study snapshot
type CaseStudyPost struct {
	CaseStudyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID      uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Alert{},
		&Post{},
		&CaseStudy{},
		&AlertPost{},
		&CaseStudyPost{},
	}
}

// Metrics holds ingestion and matching counters
type Metrics struct {
	PostsIngested       int            `json:"posts_ingested"`
	DuplicatesSkipped   int            `json:"duplicates_skipped"`
	LinksCreated        int            `json:"links_created"`
	NotificationsSent   int            `json:"notifications_sent"`
	NotificationsFailed int            `json:"notifications_failed"`
	LastRun             time.Time      `json:"last_run"`
	LastRunDuration     string         `json:"last_run_duration"`
	SourceMetrics       map[string]int `json:"source_metrics"`
	SentimentBreakdown  map[string]int `json:"sentiment_breakdown"`
	ErrorCount          int            `json:"error_count"`
}

// Stats is the dashboard summary for one user
type Stats struct {
	TotalAlerts      int64 `json:"total_alerts"`
	ActiveAlerts     int64 `json:"active_alerts"`
	MentionedPosts   int64 `json:"mentioned_posts"`
	TotalCaseStudies int64 `json:"total_case_studies"`
}
