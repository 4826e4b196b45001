package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// ErrDeliveryNotConfigured is returned by a code sender that has no
// credentials. The OTP service then falls back to the log channel.
var ErrDeliveryNotConfigured = errors.New("delivery channel not configured")

// Mailer delivers verification codes by email.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, purpose models.OTPPurpose) error
}

// MailConfig configures the SendGrid-compatible HTTP mailer.
type MailConfig struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// HTTPMailer posts to a v3 mail/send endpoint. Without an API key it returns
// ErrDeliveryNotConfigured.
type HTTPMailer struct {
	cfg        MailConfig
	httpClient *http.Client
	log        *logger.Logger
}

func NewHTTPMailer(cfg MailConfig, log *logger.Logger) *HTTPMailer {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPMailer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("service", "Mailer"),
	}
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

var otpSubjects = map[models.OTPPurpose]string{
	models.PurposeSignup:            "Your signup verification code",
	models.PurposeLogin:             "Your login code",
	models.PurposeEmailVerification: "Verify your email address",
	models.PurposePasswordReset:     "Your password reset code",
}

// OTPSubject returns the mail subject for a purpose.
func OTPSubject(purpose models.OTPPurpose) string {
	if subject, ok := otpSubjects[purpose]; ok {
		return subject
	}
	return "Your verification code"
}

func (m *HTTPMailer) SendOTP(ctx context.Context, to, code string, purpose models.OTPPurpose) error {
	subject := OTPSubject(purpose)
	if m.cfg.APIKey == "" {
		return ErrDeliveryNotConfigured
	}

	body := fmt.Sprintf("Your verification code is %s.\n\nIf you did not request it, ignore this email.", code)
	wire := mailSendRequest{
		Personalizations: []mailPersonalization{{To: []mailAddress{{Email: to}}}},
		From:             mailAddress{Email: m.cfg.FromEmail, Name: m.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/plain", Value: body}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(wire); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/v3/mail/send", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return apperr.External(err, "email delivery failed")
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.External(
			fmt.Errorf("mail api http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			"email delivery failed")
	}
	return nil
}
