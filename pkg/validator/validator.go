package validator

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"

	minPasswordLength = 8
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(digitsOnly(phone))
}

// ValidatePassword requires at least eight characters with one letter and one digit.
func ValidatePassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSpace(r):
			return false
		}
	}

	return hasLetter && hasDigit
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return false
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && r != '-' && r != ' ' && r != '\'' && r != '.' {
			return false
		}
	}

	return true
}

// ValidateClock checks a wall-clock "HH:MM" value as used by doctor schedules.
func ValidateClock(value string) bool {
	return clockRegex.MatchString(value)
}

func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatPhone normalizes local Russian numbers to +7 form, keeps anything
// already in international form.
func FormatPhone(phone string) string {
	cleanPhone := digitsOnly(phone)
	if cleanPhone == "" {
		return ""
	}

	if strings.HasPrefix(cleanPhone, "+") {
		return cleanPhone
	}

	switch {
	case len(cleanPhone) == 11 && strings.HasPrefix(cleanPhone, "8"):
		return "+7" + cleanPhone[1:]
	case len(cleanPhone) == 10:
		return "+7" + cleanPhone
	default:
		return "+" + cleanPhone
	}
}

func FormatName(name string) string {
	parts := strings.Fields(name)
	for i, part := range parts {
		subparts := strings.Split(part, "-")
		for j, subpart := range subparts {
			runes := []rune(subpart)
			if len(runes) > 0 {
				subparts[j] = strings.ToUpper(string(runes[:1])) + strings.ToLower(string(runes[1:]))
			}
		}
		parts[i] = strings.Join(subparts, "-")
	}

	return strings.Join(parts, " ")
}

func SanitizeString(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '<' || r == '>' || r == '`' || (unicode.IsControl(r) && r != '\n') {
			return -1
		}
		return r
	}, s))
}

func digitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '+' {
			return r
		}
		return -1
	}, phone)
}
