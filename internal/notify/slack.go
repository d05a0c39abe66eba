// Package notify sends ingestion run notifications to Slack via an incoming
// webhook. A nil or unconfigured notifier is a no-op so call sites never
// need to guard.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SlackConfig configures the webhook destination.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Username   string `yaml:"username"`
}

// SlackMessage is the webhook payload.
type SlackMessage struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a Slack message attachment.
type Attachment struct {
	Color  string  `json:"color,omitempty"`
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer string  `json:"footer,omitempty"`
	Ts     int64   `json:"ts,omitempty"`
}

// Field is a title/value pair inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

const (
	colorGreen  = "#36a64f"
	colorRed    = "#dc3545"
	colorYellow = "#ffc107"
	colorBlue   = "#2196f3"
)

// Notifier posts run events to Slack.
type Notifier struct {
	config *SlackConfig
	client *http.Client
}

// New creates a Notifier. A nil config yields a disabled notifier.
func New(cfg *SlackConfig) *Notifier {
	return &Notifier{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsEnabled reports whether notifications will actually be sent.
func (n *Notifier) IsEnabled() bool {
	return n.config != nil && n.config.Enabled && n.config.WebhookURL != ""
}

func (n *Notifier) getUsername() string {
	if n.config != nil && n.config.Username != "" {
		return n.config.Username
	}
	return "nflsync"
}

// IngestStarted announces a new run.
func (n *Notifier) IngestStarted(runID, kind string, seasons []int) error {
	if !n.IsEnabled() {
		return nil
	}
	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":football:",
		Attachments: []Attachment{{
			Color: colorBlue,
			Title: "Ingestion Started",
			Fields: []Field{
				{Title: "Run ID", Value: runID, Short: true},
				{Title: "Kind", Value: kind, Short: true},
				{Title: "Seasons", Value: formatSeasons(seasons), Short: true},
			},
			Ts: time.Now().Unix(),
		}},
	}
	return n.send(msg)
}

// IngestCompleted announces a clean finish with total rows written.
func (n *Notifier) IngestCompleted(runID string, duration time.Duration, totalRows int64) error {
	if !n.IsEnabled() {
		return nil
	}
	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":white_check_mark:",
		Attachments: []Attachment{{
			Color: colorGreen,
			Title: "Ingestion Completed",
			Fields: []Field{
				{Title: "Run ID", Value: runID, Short: true},
				{Title: "Duration", Value: formatDuration(duration), Short: true},
				{Title: "Rows Upserted", Value: formatNumberWithCommas(totalRows), Short: true},
			},
			Ts: time.Now().Unix(),
		}},
	}
	return n.send(msg)
}

// IngestCompletedWithSkips announces a finish where some advanced endpoints
// were skipped after source-API failures.
func (n *Notifier) IngestCompletedWithSkips(runID string, duration time.Duration, totalRows int64, skipped []string) error {
	if !n.IsEnabled() {
		return nil
	}
	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":warning:",
		Attachments: []Attachment{{
			Color: colorYellow,
			Title: "Ingestion Completed With Skips",
			Fields: []Field{
				{Title: "Run ID", Value: runID, Short: true},
				{Title: "Duration", Value: formatDuration(duration), Short: true},
				{Title: "Rows Upserted", Value: formatNumberWithCommas(totalRows), Short: true},
				{Title: "Skipped Endpoints", Value: formatSkips(skipped), Short: false},
			},
			Ts: time.Now().Unix(),
		}},
	}
	return n.send(msg)
}

// IngestFailed announces a failed run.
func (n *Notifier) IngestFailed(runID string, runErr error, duration time.Duration) error {
	if !n.IsEnabled() {
		return nil
	}
	errMsg := "Unknown error"
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > 500 {
			errMsg = errMsg[:500] + "..."
		}
	}
	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":x:",
		Attachments: []Attachment{{
			Color: colorRed,
			Title: "Ingestion Failed",
			Fields: []Field{
				{Title: "Run ID", Value: runID, Short: true},
				{Title: "Duration", Value: formatDuration(duration), Short: true},
				{Title: "Error", Value: errMsg, Short: false},
			},
			Ts: time.Now().Unix(),
		}},
	}
	return n.send(msg)
}

func (n *Notifier) send(msg SlackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}
	resp, err := n.client.Post(n.config.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func formatSeasons(seasons []int) string {
	if len(seasons) == 0 {
		return "none"
	}
	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ", ")
}

func formatSkips(skipped []string) string {
	if len(skipped) == 0 {
		return "none"
	}
	if len(skipped) <= 3 {
		return "Skipped: " + strings.Join(skipped, ", ")
	}
	return fmt.Sprintf("Skipped: %s... and %d more",
		strings.Join(skipped[:3], ", "), len(skipped)-3)
}

func formatNumberWithCommas(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
