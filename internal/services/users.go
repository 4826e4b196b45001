package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// TokenConfig signs session tokens.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// AuthResult is returned once a user has proven who they are.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// OTPChallenge tells the client where a code was sent.
type OTPChallenge struct {
	UserID     uuid.UUID         `json:"user_id"`
	Identifier string            `json:"identifier"`
	Purpose    models.OTPPurpose `json:"purpose"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// UserService owns accounts, sign-in and profiles.
type UserService struct {
	db     *gorm.DB
	log    *logger.Logger
	otp    *OTPService
	google GoogleTokenVerifier
	images *ImageStore
	tokens TokenConfig
}

func NewUserService(db *gorm.DB, log *logger.Logger, otp *OTPService, google GoogleTokenVerifier, images *ImageStore, tokens TokenConfig) *UserService {
	return &UserService{
		db:     db,
		log:    log.With("service", "UserService"),
		otp:    otp,
		google: google,
		images: images,
		tokens: tokens,
	}
}

// SignupInput is the registration payload.
type SignupInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates the account and sends a SIGNUP code to the mobile number,
// or to the email when no number was given.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*OTPChallenge, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	mobile := strings.TrimSpace(in.Mobile)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if err := utils.ValidatePassword(in.Password); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        mobile,
		Role:         models.RoleUser,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("username is already taken")
		}
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("email is already registered")
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID, "username", username)

	target := mobile
	if target == "" {
		target = email
	}
	return s.challenge(ctx, &user, target, models.PurposeSignup)
}

func (s *UserService) challenge(ctx context.Context, user *models.User, identifier string, purpose models.OTPPurpose) (*OTPChallenge, error) {
	record, err := s.otp.Issue(ctx, identifier, purpose)
	if err != nil {
		return nil, err
	}
	return &OTPChallenge{
		UserID:     user.ID,
		Identifier: record.Identifier,
		Purpose:    purpose,
		ExpiresAt:  record.ExpiresAt,
	}, nil
}

var errInvalidCredentials = apperr.Validation("invalid credentials")

// Login checks the password and sends a LOGIN code to the phone on file, or to
// the email when there is none.
func (s *UserService) Login(ctx context.Context, login, password string) (*OTPChallenge, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, errInvalidCredentials
	}
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, normalizeEmail(login)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		s.log.Warn("failed login", "user_id", user.ID)
		return nil, errInvalidCredentials
	}

	target := user.Phone
	if target == "" {
		target = user.Email
	}
	return s.challenge(ctx, &user, target, models.PurposeLogin)
}

// findByIdentifier resolves an email address or phone number to a user.
func (s *UserService) findByIdentifier(db *gorm.DB, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperr.Validation("identifier is required")
	}
	var user models.User
	query := db.Where("phone = ?", identifier)
	if strings.Contains(identifier, "@") {
		query = db.Where("email = ?", normalizeEmail(identifier))
	}
	if err := query.First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

// VerifyOTP consumes a SIGNUP, LOGIN or EMAIL_VERIFICATION code and returns a
// session token.
func (s *UserService) VerifyOTP(ctx context.Context, identifier, code string, purpose models.OTPPurpose) (*AuthResult, error) {
	parsed, ok := models.ParseOTPPurpose(string(purpose))
	if !ok {
		return nil, apperr.Validation("unknown verification purpose %q", purpose)
	}
	purpose = parsed
	if purpose == models.PurposePasswordReset {
		return nil, apperr.Validation("password reset codes are accepted only by reset-password")
	}
	user, err := s.findByIdentifier(s.db.WithContext(ctx), identifier)
	if err != nil {
		return nil, err
	}
	ok, err = s.otp.Verify(ctx, identifier, code, purpose)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("invalid or expired code")
	}

	var column string
	switch purpose {
	case models.PurposeSignup:
		column, user.MobileVerified = "mobile_verified", true
	case models.PurposeEmailVerification:
		column, user.EmailVerified = "email_verified", true
	}
	if column != "" {
		if err := s.db.WithContext(ctx).Model(user).Update(column, true).Error; err != nil {
			return nil, err
		}
	}
	return s.session(user)
}

func (s *UserService) session(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(s.tokens.Secret, user.ID, string(user.Role), s.tokens.TTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GoogleSignIn verifies a Google ID token, links it to the account with the
// same email or creates one, and sends an EMAIL_VERIFICATION code.
func (s *UserService) GoogleSignIn(ctx context.Context, idToken string) (*OTPChallenge, error) {
	if s.google == nil {
		return nil, apperr.External(errors.New("no verifier"), "google sign-in is not configured")
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	if identity.Subject == "" || email == "" {
		return nil, apperr.External(errors.New("missing subject or email"), "invalid google id token")
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", identity.Subject).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Where("email = ?", email).First(&user).Error
		}
		switch {
		case err == nil:
			if user.GoogleID != nil && *user.GoogleID != identity.Subject {
				return apperr.Conflict("account is linked to a different google identity")
			}
			if user.GoogleID == nil {
				sub := identity.Subject
				user.GoogleID = &sub
				return tx.Model(&user).Update("google_id", sub).Error
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			username, err := s.freeUsername(tx, email)
			if err != nil {
				return err
			}
			sub := identity.Subject
			user = models.User{
				Username:     username,
				Email:        email,
				FirstName:    identity.FirstName,
				LastName:     identity.LastName,
				ProfileImage: identity.Picture,
				GoogleID:     &sub,
				Role:         models.RoleUser,
			}
			return tx.Create(&user).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("google sign-in", "user_id", user.ID)
	return s.challenge(ctx, &user, user.Email, models.PurposeEmailVerification)
}

// freeUsername derives an unused username from an email's local part.
func (s *UserService) freeUsername(tx *gorm.DB, email string) (string, error) {
	base := email
	if at := strings.Index(email, "@"); at > 0 {
		base = email[:at]
	}
	candidate := base
	for i := 0; i < 5; i++ {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = base + "_" + uuid.NewString()[:6]
	}
	return base + "_" + uuid.NewString(), nil
}

// ResendOTP issues a fresh code for an existing account.
func (s *UserService) ResendOTP(ctx context.Context, identifier string, purpose models.OTPPurpose) (*OTPChallenge, error) {
	if _, ok := models.ParseOTPPurpose(string(purpose)); !ok {
		return nil, apperr.Validation("unknown verification purpose %q", purpose)
	}
	user, err := s.findByIdentifier(s.db.WithContext(ctx), identifier)
	if err != nil {
		return nil, err
	}
	return s.challenge(ctx, user, normalizeIdentifier(identifier), purpose)
}

// ForgotPassword sends a PASSWORD_RESET code.
func (s *UserService) ForgotPassword(ctx context.Context, identifier string) (*OTPChallenge, error) {
	return s.ResendOTP(ctx, identifier, models.PurposePasswordReset)
}

// ResetPassword consumes a PASSWORD_RESET code and sets a new password.
func (s *UserService) ResetPassword(ctx context.Context, identifier, code, newPassword string) error {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	user, err := s.findByIdentifier(s.db.WithContext(ctx), identifier)
	if err != nil {
		return err
	}
	ok, err := s.otp.Verify(ctx, identifier, code, models.PurposePasswordReset)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("invalid or expired code")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return err
	}
	s.log.Info("password reset", "user_id", user.ID)
	return nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return requireUser(s.db.WithContext(ctx), id)
}

// ProfilePatch lists the profile fields a user may change. Nil means keep.
type ProfilePatch struct {
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Address     *string    `json:"address"`
	City        *string    `json:"city"`
	State       *string    `json:"state"`
	ZipCode     *string    `json:"zip_code"`
	Country     *string    `json:"country"`
}

// UpdateProfile applies patch. Changing the email resets its verified flag;
// changing the phone resets the mobile one.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*models.User, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = requireUser(tx, id); err != nil {
			return err
		}
		if patch.Email != nil {
			email := normalizeEmail(*patch.Email)
			if email == "" || !strings.Contains(email, "@") {
				return apperr.Validation("a valid email is required")
			}
			if email != user.Email {
				var count int64
				if err := tx.Model(&models.User{}).
					Where("email = ? AND id <> ?", email, id).
					Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return apperr.Conflict("email is already registered")
				}
				user.Email = email
				user.EmailVerified = false
			}
		}
		if patch.Phone != nil && strings.TrimSpace(*patch.Phone) != user.Phone {
			user.Phone = strings.TrimSpace(*patch.Phone)
			user.MobileVerified = false
		}
		setString(&user.FirstName, patch.FirstName)
		setString(&user.LastName, patch.LastName)
		setString(&user.Address, patch.Address)
		setString(&user.City, patch.City)
		setString(&user.State, patch.State)
		setString(&user.ZipCode, patch.ZipCode)
		setString(&user.Country, patch.Country)
		if patch.DateOfBirth != nil {
			dob := patch.DateOfBirth.UTC()
			user.DateOfBirth = &dob
		}
		return tx.Save(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

// UpdateProfileImage stores a new avatar and removes the previous upload.
func (s *UserService) UpdateProfileImage(ctx context.Context, id uuid.UUID, name, contentType string, data []byte) (*models.User, error) {
	user, err := requireUser(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	path, err := s.images.Save(name, contentType, data)
	if err != nil {
		return nil, err
	}
	previous := user.ProfileImage
	if err := s.db.WithContext(ctx).Model(user).Update("profile_image", path).Error; err != nil {
		_ = s.images.Delete(path)
		return nil, err
	}
	user.ProfileImage = path
	if err := s.images.Delete(previous); err != nil {
		s.log.Warn("failed to remove previous profile image", "path", previous, "error", err)
	}
	return user, nil
}

// List returns one page of users, newest first.
func (s *UserService) List(ctx context.Context, page, size int) (*Page[models.User], error) {
	page, size = normalizePage(page, size)
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var users []models.User
	if err := db.Order("created_at desc").Limit(size).Offset((page - 1) * size).Find(&users).Error; err != nil {
		return nil, err
	}
	return &Page[models.User]{Items: users, Page: page, Size: size, Total: total}, nil
}

// SetRole changes a user's role. It applies from the user's next sign-in.
func (s *UserService) SetRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	parsed, ok := models.ParseRole(role)
	if !ok {
		return nil, apperr.Validation("unknown role %q", role)
	}
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = requireUser(tx, id); err != nil {
			return err
		}
		user.Role = parsed
		return tx.Model(user).Update("role", parsed).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user role changed", "user_id", id, "role", parsed)
	return user, nil
}

// Delete removes the account with its cart, wishlist, ratings and codes.
// Orders are kept for bookkeeping.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	var affected []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := requireUser(tx, id)
		if err != nil {
			return err
		}
		for _, model := range []interface{}{&models.CartItem{}, &models.WishlistItem{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.ProductRating{}).Where("user_id = ?", id).
			Distinct("product_id").Pluck("product_id", &affected).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ProductRating{}).Error; err != nil {
			return err
		}
		for _, productID := range affected {
			if err := refreshRatingAggregate(tx, productID); err != nil {
				return err
			}
		}
		identifiers := []string{user.Email}
		if user.Phone != "" {
			identifiers = append(identifiers, user.Phone)
		}
		if err := tx.Where("identifier IN ?", identifiers).Delete(&models.OTPVerification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", id)
	return nil
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error
	return total, err
}
