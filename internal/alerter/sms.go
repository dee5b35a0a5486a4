package alerter

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const smsMaxLength = 160

// TwilioSMS sends texts through the Twilio REST API. Credentials come from
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER.
type TwilioSMS struct {
	accountSID string
	authToken  string
	from       string
	recipients []string
	client     *http.Client
}

func NewTwilioSMS(recipients []string) *TwilioSMS {
	return &TwilioSMS{
		accountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		authToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		from:       os.Getenv("TWILIO_FROM_NUMBER"),
		recipients: recipients,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TwilioSMS) Send(message string) error {
	if t.accountSID == "" || t.authToken == "" || t.from == "" {
		return fmt.Errorf("twilio not configured")
	}
	if len(t.recipients) == 0 {
		return fmt.Errorf("no sms recipients configured")
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", t.accountSID)

	for _, to := range t.recipients {
		form := url.Values{}
		form.Set("To", to)
		form.Set("From", t.from)
		form.Set("Body", message)

		req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.SetBasicAuth(t.accountSID, t.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("twilio post: %w", err)
		}
		resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("twilio returned HTTP %d for %s", resp.StatusCode, to)
		}
	}
	return nil
}

// GatewaySMS delivers texts through an email-to-SMS gateway address from
// SMS_EMAIL_GATEWAY. No carrier API needed; messages are truncated to the
// SMS length limit.
type GatewaySMS struct {
	gateway string
	email   emailSender
}

func NewGatewaySMS(email emailSender) *GatewaySMS {
	return &GatewaySMS{
		gateway: os.Getenv("SMS_EMAIL_GATEWAY"),
		email:   email,
	}
}

func (g *GatewaySMS) Send(message string) error {
	if g.gateway == "" {
		return fmt.Errorf("SMS_EMAIL_GATEWAY not set")
	}
	if len(message) > smsMaxLength {
		message = message[:smsMaxLength]
	}
	return g.email.Send("Watchdog Alert", message, []string{g.gateway})
}
