// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Resend API structures
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// SendGrid API structures
type SendGridEmailRequest struct {
	Personalizations []SendGridPersonalization `json:"personalizations"`
	From             SendGridEmail             `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []SendGridContent         `json:"content"`
	ReplyTo          *SendGridEmail            `json:"reply_to,omitempty"`
}

type SendGridPersonalization struct {
	To []SendGridEmail `json:"to"`
}

type SendGridEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// MailerSend API structures
type MailerSendRequest struct {
	From    MailerSendEmail   `json:"from"`
	To      []MailerSendEmail `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	ReplyTo *MailerSendEmail  `json:"reply_to,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
}

type MailerSendEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// postJSON sends an authenticated JSON request to a provider API and checks
// the expected status code.
func (s *EmailService) postJSON(endpoint string, payload interface{}, wantStatus int) error {
	apiKey := s.config.External.Email.APIKey
	if apiKey == "" {
		return fmt.Errorf("email API key not configured")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("provider API returned status %d", resp.StatusCode)
	}
	return nil
}

// sendResendEmail sends email using the Resend API
func (s *EmailService) sendResendEmail(email *Email) error {
	cfg := s.config.External.Email

	var from string
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	} else {
		from = cfg.FromEmail
	}

	reqData := ResendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: cfg.ReplyTo,
	}

	return s.postJSON("https://api.resend.com/emails", reqData, http.StatusOK)
}

// sendSendGridEmail sends email using the SendGrid API
func (s *EmailService) sendSendGridEmail(email *Email) error {
	cfg := s.config.External.Email

	var to []SendGridEmail
	for _, recipient := range email.To {
		to = append(to, SendGridEmail{Email: recipient})
	}

	var replyTo *SendGridEmail
	if cfg.ReplyTo != "" {
		replyTo = &SendGridEmail{Email: cfg.ReplyTo}
	}

	reqData := SendGridEmailRequest{
		Personalizations: []SendGridPersonalization{
			{To: to},
		},
		From: SendGridEmail{
			Email: cfg.FromEmail,
			Name:  cfg.FromName,
		},
		Subject: email.Subject,
		Content: []SendGridContent{
			{
				Type:  "text/html",
				Value: email.HTMLContent,
			},
		},
		ReplyTo: replyTo,
	}

	return s.postJSON("https://api.sendgrid.com/v3/mail/send", reqData, http.StatusAccepted)
}

// sendMailerSendEmail sends email using the MailerSend API
func (s *EmailService) sendMailerSendEmail(email *Email) error {
	cfg := s.config.External.Email

	var to []MailerSendEmail
	for _, recipient := range email.To {
		to = append(to, MailerSendEmail{Email: recipient})
	}

	var replyTo *MailerSendEmail
	if cfg.ReplyTo != "" {
		replyTo = &MailerSendEmail{Email: cfg.ReplyTo}
	}

	reqData := MailerSendRequest{
		From: MailerSendEmail{
			Email: cfg.FromEmail,
			Name:  cfg.FromName,
		},
		To:      to,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: replyTo,
		Tags:    []string{string(email.Type)},
	}

	return s.postJSON("https://api.mailersend.com/v1/email", reqData, http.StatusAccepted)
}
