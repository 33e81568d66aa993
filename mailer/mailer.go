package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"ordernudge/config"
	"ordernudge/reminder"

	"gopkg.in/gomail.v2"
)

type emailTemplate struct {
	Subject string
	Body    string
}

// Embedded email templates, keyed by the template id configured per store.
var emailTemplates = map[string]emailTemplate{
	"order_reminder": {
		Subject: "Still thinking it over?",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Order Reminder</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>We noticed you haven't ordered yet</h2>
    </div>

    <div class="content">
        <p>Hello {{.Customer.FirstName}},</p>
        <p>You created your account {{.ReminderDays}} days ago but haven't placed an order yet.
        We'd love to have you — take another look at what's in store.</p>

        <p>If there's anything holding you back, just reply to this email.</p>
    </div>

    <div class="footer">
        <p>You're receiving this because you registered an account with us.</p>
    </div>
</body>
</html>`,
	},

	"order_reminder_final": {
		Subject: "Last reminder about your account",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Final Order Reminder</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .notice { font-weight: bold; color: #e74c3c; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Your account has been inactive for {{.ReminderLimit}} days</h2>
    </div>

    <div class="content">
        <p>Hello {{.Customer.FirstName}},</p>
        <p>It's been {{.ReminderDays}} days since you registered and we still haven't seen an
        order from you. This is our last reminder.</p>

        <p class="notice">Inactive accounts may be archived or removed after this notice.</p>

        <p>If you'd like to keep your account, placing any order will do it.</p>
    </div>

    <div class="footer">
        <p>You're receiving this because you registered an account with us.</p>
    </div>
</body>
</html>`,
	},
}

// SMTPMailer delivers reminder messages over SMTP via gomail, all messages
// of a batch on a single connection.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, messages []reminder.Message) error {
	if len(messages) == 0 {
		return nil
	}

	composed := make([]*gomail.Message, 0, len(messages))
	for _, msg := range messages {
		gm, err := Compose(msg)
		if err != nil {
			return fmt.Errorf("composing message to %s: %w", msg.To.Email, err)
		}
		composed = append(composed, gm)
	}

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(composed...); err != nil {
		return fmt.Errorf("sending %d reminder message(s): %w", len(composed), err)
	}
	return nil
}

// Compose renders a reminder message spec into a gomail message.
func Compose(msg reminder.Message) (*gomail.Message, error) {
	tmpl, ok := emailTemplates[msg.TemplateID]
	if !ok {
		return nil, fmt.Errorf("template '%s' not found", msg.TemplateID)
	}

	body, err := render(tmpl.Body, msg.Params)
	if err != nil {
		return nil, err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	gm.SetAddressHeader("To", msg.To.Email, msg.To.Name)
	if len(msg.Bcc) > 0 {
		gm.SetHeader("Bcc", msg.Bcc...)
	}
	gm.SetHeader("Subject", tmpl.Subject)
	gm.SetBody("text/html", body)
	return gm, nil
}

func render(tmplContent string, params reminder.TemplateParams) (string, error) {
	tmpl, err := template.New("email").Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("error parsing template: %v", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, params); err != nil {
		return "", fmt.Errorf("error executing template: %v", err)
	}
	return body.String(), nil
}
