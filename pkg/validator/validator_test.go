package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("anna@example.com"))
	assert.False(t, ValidateEmail("anna@"))
	assert.False(t, ValidateEmail("anna.example.com"))
	assert.Equal(t, "anna@example.com", NormalizeEmail("  Anna@Example.COM "))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("passw0rd"))
	assert.False(t, ValidatePassword("short1"))
	assert.False(t, ValidatePassword("onlyletters"))
	assert.False(t, ValidatePassword("12345678"))
	assert.False(t, ValidatePassword("with space1"))
}

func TestFormatPhone(t *testing.T) {
	tests := map[string]string{
		"8 (912) 345-67-89": "+79123456789",
		"9123456789":        "+79123456789",
		"+1 202 555 0100":   "+12025550100",
		"79123456789":       "+79123456789",
		"":                  "",
	}

	for in, want := range tests {
		assert.Equal(t, want, FormatPhone(in), in)
	}
	assert.True(t, ValidatePhone("+7 912 345-67-89"))
	assert.False(t, ValidatePhone("12345"))
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "Анна Петрова-Иванова", FormatName("анна  ПЕТРОВА-иванова"))
	assert.True(t, ValidateName("Dr. John O'Neil"))
	assert.False(t, ValidateName("A"))
	assert.False(t, ValidateName("R2D2"))
}

func TestValidateClockAndDate(t *testing.T) {
	assert.True(t, ValidateClock("09:30"))
	assert.True(t, ValidateClock("23:59"))
	assert.False(t, ValidateClock("24:00"))
	assert.False(t, ValidateClock("9:30"))

	d, ok := ParseDate("2026-03-10", time.UTC)
	assert.True(t, ok)
	assert.Equal(t, time.March, d.Month())

	_, ok = ParseDate("10.03.2026", time.UTC)
	assert.False(t, ok)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "scriptalert", SanitizeString(" <script>alert</script> ")[:11])
	assert.Equal(t, "Боль в спине", SanitizeString("Боль в спине\x00"))
}
