package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const brevoSendURL = "https://api.brevo.com/v3/smtp/email"

// BrevoService sends transactional e-mail through the Brevo API. A nil
// *BrevoService is valid and sends nothing.
type BrevoService struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	client      *http.Client
	log         *zap.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewBrevoService returns nil when the service is not configured.
func NewBrevoService(apiKey, senderEmail, senderName string, log *zap.Logger) *BrevoService {
	if log == nil {
		log = zap.NewNop()
	}
	if apiKey == "" || senderEmail == "" || senderName == "" {
		log.Warn("email service not configured, welcome e-mails disabled")
		return nil
	}
	log.Info("email service initialized", zap.String("sender", senderEmail))
	return &BrevoService{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		endpoint:    brevoSendURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

func (s *BrevoService) send(toEmail, toName, subject, htmlContent string) error {
	at := strings.Index(toEmail, "@")
	if toEmail == "" || at < 0 {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	recipientName := toName
	if recipientName == "" {
		recipientName = toEmail[:at]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.senderName, "email": s.senderEmail},
		To:          []map[string]string{{"email": toEmail, "name": recipientName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to send email via Brevo: status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// SendWelcome greets a newly registered learner. Failures are logged.
func (s *BrevoService) SendWelcome(name, email string) {
	if s == nil {
		return
	}

	greeting := strings.TrimSpace(name)
	if greeting == "" {
		greeting = "there"
	}
	content := fmt.Sprintf(
		"<p>Hi %s,</p><p>Welcome to StuPlan! Your profile is ready. Pick an avatar and set your academic level to get started.</p>",
		html.EscapeString(greeting),
	)

	if err := s.send(email, name, "Welcome to StuPlan", content); err != nil {
		s.log.Warn("failed to send welcome email", zap.String("email", email), zap.Error(err))
		return
	}
	s.log.Info("welcome email sent", zap.String("email", email))
}
