package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
)

// OTPService issues and checks one-time verification codes.
type OTPService struct {
	db     *gorm.DB
	log    *logger.Logger
	now    Clock
	length int
	ttl    time.Duration
	mailer Mailer
	sms    SMSSender
}

func NewOTPService(db *gorm.DB, log *logger.Logger, now Clock, length int, ttl time.Duration, mailer Mailer) *OTPService {
	if length <= 0 {
		length = 6
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPService{
		db:     db,
		log:    log.With("service", "OTPService"),
		now:    clockOrSystem(now),
		length: length,
		ttl:    ttl,
		mailer: mailer,
	}
}

// WithSMS routes codes for non-email identifiers through sender.
func (s *OTPService) WithSMS(sender SMSSender) *OTPService {
	s.sms = sender
	return s
}

// Issue replaces any unconsumed code for (identifier, purpose) with a fresh
// one and dispatches it. Delivery failures are logged, not returned.
func (s *OTPService) Issue(ctx context.Context, identifier string, purpose models.OTPPurpose) (*models.OTPVerification, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" {
		return nil, apperr.Validation("identifier is required")
	}
	parsed, ok := models.ParseOTPPurpose(string(purpose))
	if !ok {
		return nil, apperr.Validation("unknown verification purpose %q", purpose)
	}
	purpose = parsed
	code, err := generateCode(s.length)
	if err != nil {
		return nil, err
	}

	record := models.OTPVerification{
		Identifier: identifier,
		Code:       code,
		Purpose:    purpose,
		ExpiresAt:  s.now().Add(s.ttl),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identifier = ? AND purpose = ? AND verified = ?", identifier, purpose, false).
			Delete(&models.OTPVerification{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	s.dispatch(ctx, record)
	return &record, nil
}

func (s *OTPService) dispatch(ctx context.Context, record models.OTPVerification) {
	var (
		channel = "log"
		err     = ErrDeliveryNotConfigured
	)
	isEmail := strings.Contains(record.Identifier, "@")
	switch {
	case isEmail && s.mailer != nil:
		channel = "email"
		err = s.mailer.SendOTP(ctx, record.Identifier, record.Code, record.Purpose)
	case !isEmail && s.sms != nil:
		channel = "sms"
		err = s.sms.SendOTP(ctx, record.Identifier, record.Code, record.Purpose)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrDeliveryNotConfigured):
		// No delivery channel: the code goes to the operator log.
		s.log.Info("verification code issued",
			"identifier", record.Identifier,
			"purpose", record.Purpose,
			"code", record.Code,
			"expires_at", record.ExpiresAt)
	default:
		s.log.Error("failed to deliver verification code",
			"channel", channel,
			"identifier", record.Identifier,
			"purpose", record.Purpose,
			"error", err)
	}
}

// normalizeIdentifier lower-cases email addresses and trims phone numbers so
// codes issued and checked for the same account always match.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}

// Verify consumes a matching, unexpired code. Each code verifies at most once.
func (s *OTPService) Verify(ctx context.Context, identifier, code string, purpose models.OTPPurpose) (bool, error) {
	identifier = normalizeIdentifier(identifier)
	if parsed, ok := models.ParseOTPPurpose(string(purpose)); ok {
		purpose = parsed
	}
	code = strings.TrimSpace(code)
	if identifier == "" || code == "" {
		metrics.OTPVerifications.WithLabelValues("invalid").Inc()
		return false, nil
	}

	var record models.OTPVerification
	err := s.db.WithContext(ctx).
		Where("identifier = ? AND code = ? AND purpose = ? AND verified = ?", identifier, code, purpose, false).
		Order("created_at desc").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.OTPVerifications.WithLabelValues("invalid").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if s.now().After(record.ExpiresAt) {
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		return false, nil
	}

	res := s.db.WithContext(ctx).Model(&models.OTPVerification{}).
		Where("id = ? AND verified = ?", record.ID, false).
		Update("verified", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		metrics.OTPVerifications.WithLabelValues("invalid").Inc()
		return false, nil
	}
	metrics.OTPVerifications.WithLabelValues("success").Inc()
	return true, nil
}

// PurgeExpired deletes every code past its expiry, verified or not.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.OTPVerification{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Debug("expired verification codes purged", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// OTPPurgeJob runs PurgeExpired on the job runner.
type OTPPurgeJob struct {
	OTP *OTPService
}

func (j OTPPurgeJob) Name() string { return "otp-purge" }

func (j OTPPurgeJob) RunOnce(ctx context.Context) (int, error) {
	n, err := j.OTP.PurgeExpired(ctx)
	return int(n), err
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
