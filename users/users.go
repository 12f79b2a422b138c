package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MetadataFullName is the sign-up metadata key holding the user's display name.
const MetadataFullName = "full_name"

// User is an account held by the identity provider. Authorization data (roles)
// does not live here; it belongs to the profile held by the remote data provider.
type User struct {
	ID           string         `json:"id,omitempty"`          // Unique identifier, used as the session subject
	Email        string         `json:"email,omitempty"`       // User's email address (unique)
	PasswordHash string         `json:"-"`                     // Hashed version of the user's password - never serialize
	FullName     string         `json:"full_name,omitempty"`   // Display name captured at sign-up
	Metadata     map[string]any `json:"metadata,omitempty"`    // Sign-up metadata as supplied by the client
	DateJoined   time.Time      `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time      `json:"last_login,omitempty"`  // Last time the user signed in

	Verified bool `json:"verified,omitempty"` // Verified, has the user confirmed their email
	Blocked  bool `json:"blocked,omitempty"`  // Blocked, has the user been blocked from signing in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// MetadataString returns a string metadata value, or "" when absent.
func (u *User) MetadataString(key string) string {
	if u.Metadata == nil {
		return ""
	}
	s, _ := u.Metadata[key].(string)
	return s
}
