// Package notification delivers escalation alerts to supervisors.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// EscalationAlert is the rendered payload of one alert email.
type EscalationAlert struct {
	CallID         string
	AgentName      string
	CityName       string
	WhyFlagged     string
	OverallQuality float64
	CallTimestamp  time.Time
}

// Sender delivers an escalation alert to the configured recipients.
type Sender interface {
	SendEscalationAlert(ctx context.Context, alert EscalationAlert) error
}

const alertTemplateHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2 style="color: #b91c1c;">Escalation flagged</h2>
  <p>A call was flagged for immediate supervisor attention.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><strong>Call</strong></td><td>{{.CallID}}</td></tr>
    <tr><td><strong>Agent</strong></td><td>{{.AgentName}}</td></tr>
    <tr><td><strong>City</strong></td><td>{{.CityName}}</td></tr>
    <tr><td><strong>Call time</strong></td><td>{{.CallTimestamp.Format "2006-01-02 15:04 MST"}}</td></tr>
    <tr><td><strong>Quality score</strong></td><td>{{printf "%.2f" .OverallQuality}}</td></tr>
  </table>
  <p><strong>Reason:</strong> {{.WhyFlagged}}</p>
</body>
</html>`

var alertTemplate = template.Must(template.New("escalation_alert").Parse(alertTemplateHTML))

// SMTPSender delivers alerts over the tenant's own SMTP server via go-mail.
type SMTPSender struct {
	host       string
	port       int
	username   string
	password   string
	fromName   string
	fromEmail  string
	recipients []string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string, recipients []string) *SMTPSender {
	return &SMTPSender{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		fromName:   fromName,
		fromEmail:  fromEmail,
		recipients: recipients,
	}
}

func (s *SMTPSender) SendEscalationAlert(ctx context.Context, alert EscalationAlert) error {
	if len(s.recipients) == 0 {
		return nil
	}

	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, alert); err != nil {
		return fmt.Errorf("render escalation alert: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.recipients...); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Escalation: call %s flagged", alert.CallID))
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
