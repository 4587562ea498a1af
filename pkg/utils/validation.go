package utils

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"coursehub/pkg/models"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// ValidateUsername checks if username meets account requirements
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return models.ErrInvalidInput
	}
	return nil
}

// ValidateEmail checks address syntax. mail.ParseAddress accepts the
// "Name <addr>" form too, so reject anything that does not round-trip
// to the bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return models.ErrInvalidInput
	}
	return nil
}

// ValidatePassword checks if password meets security requirements:
// 12-128 chars with at least one lower, upper, digit and special character
func ValidatePassword(password string) error {
	if len(password) < 12 || len(password) > 128 {
		return models.ErrInvalidInput
	}
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune("@$!%*?&#", r):
			hasSpecial = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return models.ErrInvalidInput
	}
	return nil
}

// ValidateCourseTitle validates course title
func ValidateCourseTitle(title string) error {
	if len(strings.TrimSpace(title)) < 2 {
		return models.ErrInvalidInput
	}
	if len(title) > 255 {
		return models.ErrInvalidInput
	}
	return nil
}

// ValidateRating bounds review ratings to the 1-5 scale
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return models.ErrInvalidInput
	}
	return nil
}

// IsRecentTime checks if time is within specified duration
func IsRecentTime(t time.Time, duration time.Duration) bool {
	return time.Since(t) <= duration
}
