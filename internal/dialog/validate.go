package dialog

import (
	"time"

	"remindbot/internal/models"
)

const (
	// DateLayout is the only accepted date shape: zero-padded DD.MM.YYYY.
	DateLayout = models.DateLayout
	// TimeLayout is the only accepted time shape: zero-padded 24h HH:MM.
	TimeLayout = models.TimeLayout
)

// ValidDate reports whether s is an exact, calendar-possible DD.MM.YYYY date.
// time.Parse alone accepts unpadded digits, so the round-trip check pins the
// input to the canonical form.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

// ValidTime reports whether s is an exact HH:MM time with hour 00-23 and
// minute 00-59.
func ValidTime(s string) bool {
	t, err := time.Parse(TimeLayout, s)
	return err == nil && t.Format(TimeLayout) == s
}
