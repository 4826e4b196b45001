package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/database/dbtest"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

type sentMail struct {
	to, code string
	purpose  models.OTPPurpose
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string, purpose models.OTPPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, code: code, purpose: purpose})
	return m.err
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func TestOTPRoundTripIsSingleUse(t *testing.T) {
	db := dbtest.New(t)
	clock := newFakeClock()
	otp := NewOTPService(db, nopLog(), clock.Now, 6, 5*time.Minute, nil)

	record, err := otp.Issue(ctx, "+15550001", models.PurposeSignup)
	require.NoError(t, err)
	assert.Len(t, record.Code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, record.Code)
	assert.True(t, record.ExpiresAt.Equal(clock.Now().Add(5*time.Minute)))

	ok, err := otp.Verify(ctx, "+15550001", record.Code, models.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok, "purpose must match")

	clock.Advance(4 * time.Minute)
	ok, err = otp.Verify(ctx, "+15550001", record.Code, models.PurposeSignup)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = otp.Verify(ctx, "+15550001", record.Code, models.PurposeSignup)
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")
}

func TestOTPExpiresAfterTTL(t *testing.T) {
	db := dbtest.New(t)
	clock := newFakeClock()
	otp := NewOTPService(db, nopLog(), clock.Now, 4, time.Minute, nil)

	record, err := otp.Issue(ctx, "+15550001", models.PurposeLogin)
	require.NoError(t, err)
	assert.Len(t, record.Code, 4)

	clock.Advance(time.Minute + time.Second)
	ok, err := otp.Verify(ctx, "+15550001", record.Code, models.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPReissueSupersedesOldCode(t *testing.T) {
	db := dbtest.New(t)
	otp := NewOTPService(db, nopLog(), newFakeClock().Now, 6, time.Minute, nil)

	first, err := otp.Issue(ctx, "+15550001", models.PurposeLogin)
	require.NoError(t, err)
	second, err := otp.Issue(ctx, "+15550001", models.PurposeLogin)
	require.NoError(t, err)
	_, err = otp.Issue(ctx, "+15550001", models.PurposeSignup)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OTPVerification{}).
		Where("identifier = ? AND purpose = ?", "+15550001", models.PurposeLogin).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	if first.Code != second.Code {
		ok, err := otp.Verify(ctx, "+15550001", first.Code, models.PurposeLogin)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := otp.Verify(ctx, "+15550001", second.Code, models.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPEmailDispatchAndFailureIsSwallowed(t *testing.T) {
	db := dbtest.New(t)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	otp := NewOTPService(db, nopLog(), nil, 6, time.Minute, mailer)

	record, err := otp.Issue(ctx, "ada@example.com", models.PurposeEmailVerification)
	require.NoError(t, err)
	sent := mailer.last()
	assert.Equal(t, "ada@example.com", sent.to)
	assert.Equal(t, record.Code, sent.code)
	assert.Equal(t, models.PurposeEmailVerification, sent.purpose)

	_, err = otp.Issue(ctx, "+15550001", models.PurposeLogin)
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1, "phone numbers use the display channel")

	_, err = otp.Issue(ctx, " ", models.PurposeLogin)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = otp.Issue(ctx, "+15550001", models.OTPPurpose("bogus"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestOTPPurgeExpired(t *testing.T) {
	db := dbtest.New(t)
	clock := newFakeClock()
	otp := NewOTPService(db, nopLog(), clock.Now, 6, time.Minute, nil)

	used, err := otp.Issue(ctx, "+1", models.PurposeLogin)
	require.NoError(t, err)
	ok, err := otp.Verify(ctx, "+1", used.Code, models.PurposeLogin)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = otp.Issue(ctx, "+2", models.PurposeLogin)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = otp.Issue(ctx, "+3", models.PurposeLogin)
	require.NoError(t, err)

	job := OTPPurgeJob{OTP: otp}
	assert.Equal(t, "otp-purge", job.Name())
	n, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var left []models.OTPVerification
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "+3", left[0].Identifier)
}

func TestGenerateCode(t *testing.T) {
	for _, n := range []int{4, 6, 10} {
		code, err := generateCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestOTPPhoneCodesUseSMSSender(t *testing.T) {
	db := dbtest.New(t)
	mailer := &fakeMailer{}
	sms := &fakeMailer{}
	otp := NewOTPService(db, nopLog(), nil, 6, time.Minute, mailer).WithSMS(sms)

	record, err := otp.Issue(ctx, "+15550001", models.PurposeLogin)
	require.NoError(t, err)
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "+15550001", sms.last().to)
	assert.Equal(t, record.Code, sms.last().code)
	assert.Empty(t, mailer.sent)

	_, err = otp.Issue(ctx, "ada@example.com", models.PurposeLogin)
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
	assert.Len(t, sms.sent, 1)
}

func observedLog() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func loggedCodes(logs *observer.ObservedLogs, identifier string) []string {
	var codes []string
	for _, entry := range logs.FilterMessage("verification code issued").All() {
		fields := entry.ContextMap()
		if fields["identifier"] == identifier {
			if code, ok := fields["code"].(string); ok {
				codes = append(codes, code)
			}
		}
	}
	return codes
}

func TestOTPUnconfiguredSendersFallBackToLog(t *testing.T) {
	db := dbtest.New(t)
	log, logs := observedLog()
	otp := NewOTPService(db, log, nil, 6, time.Minute, NewHTTPMailer(MailConfig{}, log)).
		WithSMS(NewPlumSMS(PlumConfig{}, log, nil))

	phone, err := otp.Issue(ctx, "+15550001", models.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, []string{phone.Code}, loggedCodes(logs, "+15550001"))

	email, err := otp.Issue(ctx, "ada@example.com", models.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, []string{email.Code}, loggedCodes(logs, "ada@example.com"))

	assert.Empty(t, logs.FilterMessage("failed to deliver verification code").All())
}

func TestOTPWithoutSendersLogsCode(t *testing.T) {
	db := dbtest.New(t)
	log, logs := observedLog()
	otp := NewOTPService(db, log, nil, 6, time.Minute, nil)

	record, err := otp.Issue(ctx, "+15550002", models.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, []string{record.Code}, loggedCodes(logs, "+15550002"))
}

func TestOTPDeliveryFailureDoesNotLogCode(t *testing.T) {
	db := dbtest.New(t)
	log, logs := observedLog()
	otp := NewOTPService(db, log, nil, 6, time.Minute, &fakeMailer{err: errors.New("smtp down")})

	_, err := otp.Issue(ctx, "ada@example.com", models.PurposeLogin)
	require.NoError(t, err)
	assert.Empty(t, loggedCodes(logs, "ada@example.com"))
	assert.Len(t, logs.FilterMessage("failed to deliver verification code").All(), 1)
}

func TestOTPNormalizesPurposeAndEmail(t *testing.T) {
	db := dbtest.New(t)
	otp := NewOTPService(db, nopLog(), newFakeClock().Now, 6, time.Minute, nil)

	record, err := otp.Issue(ctx, " Ada@Example.COM ", models.OTPPurpose("signup"))
	require.NoError(t, err)
	assert.Equal(t, models.PurposeSignup, record.Purpose)
	assert.Equal(t, "ada@example.com", record.Identifier)

	ok, err := otp.Verify(ctx, "ADA@example.com", record.Code, models.PurposeSignup)
	require.NoError(t, err)
	assert.True(t, ok)
}
