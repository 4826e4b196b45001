package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a role name onto the closed Role set.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User represents a registered customer or administrator.
type User struct {
	BaseModel
	Username       string     `gorm:"uniqueIndex;not null" json:"username"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string     `json:"-"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Phone          string     `gorm:"index" json:"phone"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Address        string     `json:"address"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	ZipCode        string     `json:"zip_code"`
	Country        string     `json:"country"`
	ProfileImage   string     `json:"profile_image"`
	MobileVerified bool       `json:"mobile_verified"`
	EmailVerified  bool       `json:"email_verified"`
	GoogleID       *string    `gorm:"uniqueIndex" json:"-"`
	Role           Role       `gorm:"type:varchar(16);default:USER" json:"role"`
}

// OTPPurpose tags what a one-time code authorises.
type OTPPurpose string

const (
	PurposeSignup            OTPPurpose = "SIGNUP"
	PurposeLogin             OTPPurpose = "LOGIN"
	PurposeEmailVerification OTPPurpose = "EMAIL_VERIFICATION"
	PurposePasswordReset     OTPPurpose = "PASSWORD_RESET"
)

// ParseOTPPurpose maps a tag onto the closed purpose set.
func ParseOTPPurpose(value string) (OTPPurpose, bool) {
	switch OTPPurpose(strings.ToUpper(strings.TrimSpace(value))) {
	case PurposeSignup:
		return PurposeSignup, true
	case PurposeLogin:
		return PurposeLogin, true
	case PurposeEmailVerification:
		return PurposeEmailVerification, true
	case PurposePasswordReset:
		return PurposePasswordReset, true
	}
	return "", false
}

// OTPVerification keeps track of one-time codes sent to users.
type OTPVerification struct {
	BaseModel
	Identifier string     `gorm:"index:idx_otp_identifier_purpose;not null" json:"identifier"`
	Code       string     `gorm:"not null" json:"-"`
	Purpose    OTPPurpose `gorm:"type:varchar(32);index:idx_otp_identifier_purpose;not null" json:"purpose"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	Verified   bool       `json:"verified"`
}

// WishlistItem links a user to a favourite product.
type WishlistItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product;index" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
}
