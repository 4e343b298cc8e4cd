package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// maxListedPosts caps how many posts one notification lists.
const maxListedPosts = 10

// Mailer delivers composed messages; *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service handles sending notifications via email and Teams
type Service struct {
	config *config.Config
	client *resty.Client
	mailer Mailer
}

// Ensure Service implements Dispatcher
var _ Dispatcher = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// matchEmail is the data rendered into the email templates
type matchEmail struct {
	Owner     *models.User
	Alert     *models.Alert
	Posts     []models.Post
	Total     int
	Remaining int
	SentAt    time.Time
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	if cfg.EmailEnabled() {
		s.mailer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// WithMailer replaces the SMTP dialer.
func (s *Service) WithMailer(m Mailer) *Service {
	s.mailer = m
	return s
}

// NotifyMatches sends one notification per channel listing the new posts.
// Owners who disabled notifications are skipped.
func (s *Service) NotifyMatches(ctx context.Context, owner *models.User, alert *models.Alert, posts []models.Post) error {
	if owner == nil || !owner.NotificationsEnabled || len(posts) == 0 {
		return nil
	}

	log := logrus.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"user_id":  owner.ID,
		"posts":    len(posts),
	})

	var errors []string

	if s.mailer != nil && owner.Email != "" {
		if err := s.sendEmail(owner, alert, posts); err != nil {
			log.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			log.Info("Sent match notification via email")
		}
	}

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(ctx, owner, alert, posts); err != nil {
			log.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			log.Info("Sent match notification to Teams")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(ctx context.Context, owner *models.User, alert *models.Alert, posts []models.Post) error {
	message := s.buildTeamsMessage(owner, alert, posts)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(owner *models.User, alert *models.Alert, posts []models.Post) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: severityColor(alert.Severity),
		Title:      subject(alert, len(posts)),
		Text:       fmt.Sprintf("Alert **%s** owned by %s matched %d new post(s)", alert.Title, owner.Username, len(posts)),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Alert",
		Facts: []TeamsFact{
			{Name: "Severity", Value: alert.Severity},
			{Name: "Keywords", Value: strings.Join(alert.Keywords, ", ")},
			{Name: "Platforms", Value: strings.Join(alert.Platforms, ", ")},
			{Name: "Total Mentions", Value: fmt.Sprintf("%d", alert.PostCount)},
		},
		Markdown: true,
	})

	var lines []string
	for i, post := range posts {
		if i >= maxListedPosts {
			lines = append(lines, fmt.Sprintf("...and %d more", len(posts)-maxListedPosts))
			break
		}
		lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s (%s)",
			post.Title, post.SourceURL, post.Platform, post.PublishedAt.Format("Jan 2")))
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "New Mentions",
		ActivityText:  strings.Join(lines, "\n\n"),
		Markdown:      true,
	})

	return message
}

func (s *Service) sendEmail(owner *models.User, alert *models.Alert, posts []models.Post) error {
	data := newMatchEmail(owner, alert, posts)

	htmlBody, err := s.buildEmailHTML(data)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPFrom)
	m.SetHeader("To", owner.Email)
	m.SetHeader("Subject", subject(alert, len(posts)))
	m.SetBody("text/plain", s.buildEmailText(data))
	m.AddAlternative("text/html", htmlBody)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func newMatchEmail(owner *models.User, alert *models.Alert, posts []models.Post) matchEmail {
	listed := posts
	if len(listed) > maxListedPosts {
		listed = listed[:maxListedPosts]
	}
	return matchEmail{
		Owner:     owner,
		Alert:     alert,
		Posts:     listed,
		Total:     len(posts),
		Remaining: len(posts) - len(listed),
		SentAt:    time.Now().UTC(),
	}
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"truncate": truncate,
	"lower":    strings.ToLower,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New mentions for {{.Alert.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .mention { border-left: 4px solid #0078d4; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-title { font-weight: bold; margin-bottom: 5px; }
        .mention-meta { color: #666; font-size: 0.9em; }
        .positive { border-left-color: #107c10; }
        .negative { border-left-color: #d13438; }
        .neutral { border-left-color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Alert.Title}}</h1>
        <p>{{.Total}} new mention(s) &middot; severity {{.Alert.Severity}} &middot; {{.SentAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    {{range .Posts}}
    <div class="mention {{lower .Sentiment}}">
        <div class="mention-title">
            <a href="{{.SourceURL}}" target="_blank">{{.Title}}</a>
        </div>
        <div class="mention-meta">
            {{.Platform}}{{if .Source}} via {{.Source}}{{end}} | {{.PublishedAt.Format "Jan 2, 2006"}} | {{.Sentiment}}
        </div>
        {{if .Content}}
        <p>{{truncate .Content 200}}</p>
        {{end}}
    </div>
    {{end}}
    {{if .Remaining}}<p>...and {{.Remaining}} more.</p>{{end}}

    <hr>
    <p><small>You receive this because notifications are enabled for {{.Owner.Username}}.</small></p>
</body>
</html>
`))

func (s *Service) buildEmailHTML(data matchEmail) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildEmailText(data matchEmail) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("%s\n", subject(data.Alert, data.Total)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", data.SentAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("NEW MENTIONS\n")
	text.WriteString("============\n")

	for i, post := range data.Posts {
		text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, post.Title))
		text.WriteString(fmt.Sprintf("   Platform: %s | Sentiment: %s | Date: %s\n",
			post.Platform, post.Sentiment, post.PublishedAt.Format("Jan 2, 2006")))
		text.WriteString(fmt.Sprintf("   URL: %s\n", post.SourceURL))
		if post.Content != "" {
			text.WriteString(fmt.Sprintf("   Content: %s\n", truncate(post.Content, 200)))
		}
	}

	if data.Remaining > 0 {
		text.WriteString(fmt.Sprintf("\n...and %d more.\n", data.Remaining))
	}

	return text.String()
}

func subject(alert *models.Alert, count int) string {
	return fmt.Sprintf("[%s] %s - %d new mention(s)", alert.Severity, alert.Title, count)
}

func severityColor(severity string) string {
	switch severity {
	case models.SeverityCritical:
		return "d13438"
	case models.SeverityHigh:
		return "ff8c00"
	case models.SeverityLow:
		return "605e5c"
	default:
		return "0078d4"
	}
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
