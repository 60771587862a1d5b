package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/launchwatch/launchcoin-feed/internal/config"
	"github.com/launchwatch/launchcoin-feed/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// latestLimit caps how many launches a digest lists
const latestLimit = 10

// Service sends launch digests via the configured channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
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

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendDigest sends a digest via every configured channel
func (s *Service) SendDigest(digest *models.Digest) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// latestLaunches returns up to limit launches, newest first
func latestLaunches(digest *models.Digest, limit int) []models.Record {
	n := len(digest.Launches)
	if n < limit {
		limit = n
	}

	latest := make([]models.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		latest = append(latest, digest.Launches[i])
	}
	return latest
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	message := s.buildTeamsMessage(digest)

	resp, err := s.client.R().
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

func (s *Service) buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Launchcoin Digest - %s", digest.GeneratedAt.Format("Jan 2, 2006")),
		Text:    fmt.Sprintf("%d launches currently tracked", digest.TotalLaunches),
	}

	facts := []TeamsFact{
		{Name: "Total Launches", Value: fmt.Sprintf("%d", digest.TotalLaunches)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if len(digest.TopSymbols) > 0 {
		facts = append(facts, TeamsFact{Name: "Top Symbols", Value: strings.Join(digest.TopSymbols, ", ")})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if latest := latestLaunches(digest, 5); len(latest) > 0 {
		var lines []string
		for _, launch := range latest {
			lines = append(lines, fmt.Sprintf("**[$%s](%s)** %s - @%s (%s)",
				launch.Symbol, launch.URL, launch.AdditionalText, launch.User.Username, launch.CreatedAt.Format("Jan 2 15:04")))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Latest Launches",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(digest *models.Digest) error {
	subject := fmt.Sprintf("Launchcoin Digest - %d launches", digest.TotalLaunches)

	htmlBody, err := s.buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(digest))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Launchcoin Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #1d9bf0; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .launch { border-left: 4px solid #1d9bf0; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .launch-title { font-weight: bold; margin-bottom: 5px; }
        .launch-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Launchcoin Digest</h1>
        <p>Generated on {{.Digest.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Launches:</strong> {{.Digest.TotalLaunches}}</p>
        {{if .Digest.TopSymbols}}<p><strong>Top Symbols:</strong> {{join .Digest.TopSymbols ", "}}</p>{{end}}
    </div>

    {{if .Latest}}
    <h2>Latest Launches</h2>
    {{range .Latest}}
        <div class="launch">
            <div class="launch-title">
                <a href="{{.URL}}" target="_blank">${{.Symbol}}</a> {{.AdditionalText}}
            </div>
            <div class="launch-meta">
                By @{{.User.Username}} ({{.User.FollowersCount}} followers) | {{.CreatedAt.Format "Jan 2, 2006 15:04"}}
            </div>
            <p>{{truncate .Text 200}}</p>
        </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by launchcoin-feed.</small></p>
</body>
</html>
`

func (s *Service) buildEmailHTML(digest *models.Digest) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"join":     strings.Join,
		"truncate": truncate,
	}).Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	data := struct {
		Digest *models.Digest
		Latest []models.Record
	}{
		Digest: digest,
		Latest: latestLaunches(digest, latestLimit),
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString("Launchcoin Digest\n")
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Launches: %d\n", digest.TotalLaunches))
	if len(digest.TopSymbols) > 0 {
		text.WriteString(fmt.Sprintf("Top Symbols: %s\n", strings.Join(digest.TopSymbols, ", ")))
	}

	latest := latestLaunches(digest, latestLimit)
	if len(latest) > 0 {
		text.WriteString("\nLATEST LAUNCHES\n")
		text.WriteString("===============\n")

		for i, launch := range latest {
			text.WriteString(fmt.Sprintf("\n%d. $%s %s\n", i+1, launch.Symbol, launch.AdditionalText))
			text.WriteString(fmt.Sprintf("   Author: @%s | Date: %s\n", launch.User.Username, launch.CreatedAt.Format("Jan 2, 2006 15:04")))
			text.WriteString(fmt.Sprintf("   URL: %s\n", launch.URL))
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by launchcoin-feed.\n")

	return text.String()
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
