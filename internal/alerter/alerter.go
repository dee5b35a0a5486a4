// Package alerter formats notification actions into channel payloads and
// hands them to the channel senders. Delivery is best-effort: a failed send is
// logged and never surfaces to the caller, so incident state is independent of
// transport health.
package alerter

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Cortado-Group/website-watchdog/internal/config"
	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

type slackSender interface {
	Send(title, message string) error
}

type emailSender interface {
	Send(subject, body string, recipients []string) error
}

type smsSender interface {
	Send(message string) error
}

type desktopNotifier interface {
	Down(title, message string) error
	Up(title, message string) error
}

type Alerter struct {
	cfg     config.AlertsConfig
	log     *zap.Logger
	slack   slackSender
	email   emailSender
	sms     smsSender
	desktop desktopNotifier
}

// New builds an Alerter with the production senders. Credentials come from
// the environment; a sender left unconfigured fails at send time and is
// logged like any other delivery failure.
func New(cfg config.AlertsConfig, log *zap.Logger) *Alerter {
	smtp := NewSMTPEmail()

	var sms smsSender
	if cfg.SMS.Method == "twilio" {
		sms = NewTwilioSMS(cfg.SMS.Recipients)
	} else {
		sms = NewGatewaySMS(smtp)
	}

	return &Alerter{
		cfg:     cfg,
		log:     log,
		slack:   NewSlackWebhook(cfg.Slack.Channel),
		email:   smtp,
		sms:     sms,
		desktop: NewDesktop(),
	}
}

// SendInitial delivers the immediate down notification for a freshly opened
// incident. Slack is the first-responder channel; email and sms wait for
// their escalation thresholds.
func (a *Alerter) SendInitial(target *storage.Target, check *storage.Check) {
	message := formatFailureMessage(target, check, 1)
	title := fmt.Sprintf("ALERT: %s is DOWN", target.Name)

	if a.cfg.Slack.Enabled && target.HasChannel(storage.ChannelSlack) {
		if err := a.slack.Send(title, message); err != nil {
			a.log.Warn("slack alert failed", zap.String("target", target.Name), zap.Error(err))
		} else {
			a.log.Info("slack alert sent", zap.String("target", target.Name), zap.String("channel", a.cfg.Slack.Channel))
		}
	}

	if a.cfg.Desktop.Enabled {
		if err := a.desktop.Down(title, message); err != nil {
			a.log.Warn("desktop notification failed", zap.Error(err))
		}
	}
}

// SendEscalation delivers threshold alerts for an ongoing incident. A channel
// fires when failureCount EQUALS its threshold — not at-or-above — so each
// escalation goes out exactly once per incident.
func (a *Alerter) SendEscalation(target *storage.Target, check *storage.Check, incident *storage.Incident, failureCount int) {
	if failureCount == a.cfg.Email.EscalateAfter &&
		target.HasChannel(storage.ChannelEmail) &&
		a.cfg.Email.Enabled {

		subject := fmt.Sprintf("ESCALATION: %s down for %d checks", target.Name, failureCount)
		body := formatFailureMessage(target, check, failureCount)

		if err := a.email.Send(subject, body, a.cfg.Email.Recipients); err != nil {
			a.log.Warn("email escalation failed", zap.String("target", target.Name), zap.Error(err))
		} else {
			a.log.Info("email escalation sent",
				zap.String("target", target.Name),
				zap.Int("failure_count", failureCount),
				zap.Strings("recipients", a.cfg.Email.Recipients))
		}
	}

	if failureCount == a.cfg.SMS.EscalateAfter &&
		target.HasChannel(storage.ChannelSMS) &&
		a.cfg.SMS.Enabled {

		errMsg := "Unknown error"
		if check.ErrorMessage != nil {
			errMsg = *check.ErrorMessage
		}
		brief := fmt.Sprintf("CRITICAL: %s has been down for %d consecutive checks. %s",
			target.Name, failureCount, errMsg)

		if err := a.sms.Send(brief); err != nil {
			a.log.Warn("sms escalation failed", zap.String("target", target.Name), zap.Error(err))
		} else {
			a.log.Info("sms escalation sent",
				zap.String("target", target.Name),
				zap.Int("failure_count", failureCount))
		}
	}
}

// SendRecovery announces that the target is back. The incident argument is
// the pre-resolution snapshot, so its failure count is the downtime length.
func (a *Alerter) SendRecovery(target *storage.Target, check *storage.Check, incident *storage.Incident) {
	var responseTime float64
	if check.ResponseTime != nil {
		responseTime = *check.ResponseTime
	}

	title := fmt.Sprintf("RECOVERED: %s", target.Name)
	message := fmt.Sprintf("*RECOVERED*: %s\n\n", target.Name)
	message += "Target is now responding normally.\n"
	message += fmt.Sprintf("Was down for %d consecutive checks.\n", incident.FailureCount)
	message += fmt.Sprintf("Response time: %.0fms", responseTime)

	if a.cfg.Slack.Enabled && target.HasChannel(storage.ChannelSlack) {
		if err := a.slack.Send(title, message); err != nil {
			a.log.Warn("slack recovery failed", zap.String("target", target.Name), zap.Error(err))
		} else {
			a.log.Info("slack recovery sent", zap.String("target", target.Name))
		}
	}

	if a.cfg.Desktop.Enabled {
		if err := a.desktop.Up(title, message); err != nil {
			a.log.Warn("desktop notification failed", zap.Error(err))
		}
	}
}

func formatFailureMessage(target *storage.Target, check *storage.Check, failureCount int) string {
	msg := fmt.Sprintf("*Target*: %s\n", target.Name)
	msg += fmt.Sprintf("*Status*: %s\n", strings.ToUpper(string(check.Status)))

	if check.StatusCode != nil {
		msg += fmt.Sprintf("*HTTP Status*: %d\n", *check.StatusCode)
	}
	if check.ErrorMessage != nil {
		msg += fmt.Sprintf("*Error*: %s\n", *check.ErrorMessage)
	}
	if failureCount > 1 {
		msg += fmt.Sprintf("*Consecutive Failures*: %d\n", failureCount)
	}
	msg += fmt.Sprintf("*Time*: %s", time.Now().Format("2006-01-02 15:04:05"))

	return msg
}
