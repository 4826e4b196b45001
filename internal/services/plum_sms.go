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
	"sync"
	"time"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// SMSSender delivers verification codes to phone numbers.
type SMSSender interface {
	SendOTP(ctx context.Context, phone, code string, purpose models.OTPPurpose) error
}

// PlumConfig holds the Plum SMS gateway credentials.
type PlumConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// PlumSMS sends codes through the Plum gateway. It logs in with username and
// password, caches the bearer token and logs in again once on a 401.
type PlumSMS struct {
	cfg        PlumConfig
	httpClient *http.Client
	log        *logger.Logger
	now        Clock

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

func NewPlumSMS(cfg PlumConfig, log *logger.Logger, now Clock) *PlumSMS {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://pay.myuzcard.uz/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &PlumSMS{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("service", "PlumSMS"),
		now:        clockOrSystem(now),
	}
}

// Enabled reports whether credentials are configured.
func (p *PlumSMS) Enabled() bool {
	return p != nil && p.cfg.Username != "" && p.cfg.Password != ""
}

type plumAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (p *PlumSMS) accessToken(ctx context.Context, force bool) (string, error) {
	if !force {
		p.mu.RLock()
		if p.token != "" && p.now().Before(p.tokenExpiry) {
			t := p.token
			p.mu.RUnlock()
			return t, nil
		}
		p.mu.RUnlock()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if !force && p.token != "" && p.now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"username": p.cfg.Username,
		"password": p.cfg.Password,
	})
	if err != nil {
		return "", err
	}
	status, body, err := p.post(ctx, "/auth/login", "", payload)
	if err != nil {
		return "", fmt.Errorf("plum auth request: %w", err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("plum auth failed: status %d, body: %s", status, string(body))
	}

	var auth plumAuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("plum auth unmarshal: %w", err)
	}
	if auth.Token == "" {
		return "", errors.New("plum auth: empty token")
	}

	p.token = auth.Token
	if auth.ExpiresIn > 0 {
		p.tokenExpiry = p.now().Add(time.Duration(auth.ExpiresIn)*time.Second - 30*time.Second)
	} else {
		p.tokenExpiry = p.now().Add(55 * time.Minute)
	}
	return p.token, nil
}

func (p *PlumSMS) post(ctx context.Context, path, token string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/"+strings.TrimLeft(path, "/"), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, body, nil
}

// call performs an authenticated request, retrying once with a fresh token
// on 401.
func (p *PlumSMS) call(ctx context.Context, path string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("plum request marshal: %w", err)
	}
	token, err := p.accessToken(ctx, false)
	if err != nil {
		return 0, nil, err
	}
	status, respBody, err := p.post(ctx, path, token, payload)
	if err != nil || status != http.StatusUnauthorized {
		return status, respBody, err
	}

	if token, err = p.accessToken(ctx, true); err != nil {
		return 0, nil, err
	}
	return p.post(ctx, path, token, payload)
}

// SendOTP texts code to phone. Without credentials it returns
// ErrDeliveryNotConfigured.
func (p *PlumSMS) SendOTP(ctx context.Context, phone, code string, purpose models.OTPPurpose) error {
	if !p.Enabled() {
		return ErrDeliveryNotConfigured
	}
	message := fmt.Sprintf("%s: %s", OTPSubject(purpose), code)
	status, body, err := p.call(ctx, "sms/send", map[string]string{
		"phone":   phone,
		"message": message,
	})
	if err != nil {
		return apperr.External(err, "sms delivery failed")
	}
	if status < 200 || status >= 300 {
		return apperr.External(
			fmt.Errorf("plum send sms: status %d, body: %s", status, strings.TrimSpace(string(body))),
			"sms delivery failed")
	}
	return nil
}
