package storage

import (
	"strings"
	"time"
)

// CheckStatus is the classified outcome of a single probe.
type CheckStatus string

const (
	StatusSuccess CheckStatus = "success"
	StatusFailure CheckStatus = "failure"
	StatusTimeout CheckStatus = "timeout"
	StatusError   CheckStatus = "error"
)

// AlertChannel identifies one notification channel. The set is fixed;
// incidents track a dedicated boolean per channel.
type AlertChannel string

const (
	ChannelSlack AlertChannel = "slack"
	ChannelEmail AlertChannel = "email"
	ChannelSMS   AlertChannel = "sms"
)

// KnownChannel reports whether ch is one of the fixed alert channels.
func KnownChannel(ch AlertChannel) bool {
	switch ch {
	case ChannelSlack, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

type Target struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Name           string     `gorm:"not null;uniqueIndex" json:"name"`
	URL            string     `gorm:"not null" json:"url"`
	Method         string     `gorm:"default:GET" json:"method"`
	ExpectedStatus int        `gorm:"default:200" json:"expected_status"`
	Timeout        int        `gorm:"default:10" json:"timeout"`
	Contains       string     `json:"contains"`
	// No column default: a bool default would make gorm drop explicit
	// false values on insert. Config applies the enabled-by-default rule.
	Enabled        bool       `json:"enabled"`
	AlertChannels  string     `json:"alert_channels"`
	Checks         []Check    `gorm:"foreignKey:TargetID" json:"-"`
	Incidents      []Incident `gorm:"foreignKey:TargetID" json:"-"`
}

// Channels parses the stored channel list, dropping anything outside the
// fixed {slack, email, sms} set.
func (t *Target) Channels() []AlertChannel {
	if t.AlertChannels == "" {
		return nil
	}
	parts := strings.Split(t.AlertChannels, ",")
	channels := make([]AlertChannel, 0, len(parts))
	for _, p := range parts {
		ch := AlertChannel(strings.TrimSpace(p))
		if KnownChannel(ch) {
			channels = append(channels, ch)
		}
	}
	return channels
}

// HasChannel reports whether ch is configured on the target.
func (t *Target) HasChannel(ch AlertChannel) bool {
	for _, c := range t.Channels() {
		if c == ch {
			return true
		}
	}
	return false
}

// JoinChannels renders a channel list into the stored representation.
func JoinChannels(channels []AlertChannel) string {
	parts := make([]string, 0, len(channels))
	for _, ch := range channels {
		parts = append(parts, string(ch))
	}
	return strings.Join(parts, ",")
}

// Check is one probe outcome. Rows are append-only.
type Check struct {
	ID           uint        `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	TargetID     uint        `gorm:"index;not null" json:"target_id"`
	Status       CheckStatus `gorm:"not null" json:"status"`
	StatusCode   *int        `json:"status_code"`
	ResponseTime *float64    `json:"response_time"`
	ErrorMessage *string     `json:"error_message"`
}

// Success reports whether the check was classified as success.
func (c *Check) Success() bool {
	return c.Status == StatusSuccess
}

// Incident is a contiguous run of non-success checks for one target.
// A resolved incident is terminal and never reopened.
type Incident struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	TargetID     uint           `gorm:"index;not null" json:"target_id"`
	Status       IncidentStatus `gorm:"default:open;index" json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	ResolvedAt   *time.Time     `json:"resolved_at"`
	FailureCount int            `gorm:"default:1" json:"failure_count"`
	LastCheckID  uint           `json:"last_check_id"`
	SlackAlerted bool           `gorm:"default:false" json:"slack_alerted"`
	EmailAlerted bool           `gorm:"default:false" json:"email_alerted"`
	SMSAlerted   bool           `gorm:"default:false" json:"sms_alerted"`
}

func (i *Incident) IsResolved() bool {
	return i.Status == IncidentResolved
}

func (i *Incident) Duration() time.Duration {
	if i.ResolvedAt != nil {
		return i.ResolvedAt.Sub(i.StartedAt)
	}
	return time.Since(i.StartedAt)
}

// Alerted reports whether the given channel was marked alerted on this incident.
func (i *Incident) Alerted(ch AlertChannel) bool {
	switch ch {
	case ChannelSlack:
		return i.SlackAlerted
	case ChannelEmail:
		return i.EmailAlerted
	case ChannelSMS:
		return i.SMSAlerted
	}
	return false
}
