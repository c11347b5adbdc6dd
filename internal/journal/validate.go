package journal

import (
	"fmt"
	"unicode/utf8"
)

const (
	moodMin          = 0
	moodMax          = 100
	maxActivityChars = 100
	maxNotesChars    = 500
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// MoodInput is the request body for a mood check-in. Pointers distinguish a
// missing score from an explicit zero.
type MoodInput struct {
	UserID    string   `json:"user_id"`
	Happiness *float64 `json:"happiness"`
	Anxiety   *float64 `json:"anxiety"`
	Energy    *float64 `json:"energy"`
	Stress    *float64 `json:"stress"`
	Activity  string   `json:"activity"`
	Notes     string   `json:"notes"`
}

// ValidateMood checks that all four scores are present and within [0,100]
// and that the free-text fields fit their columns.
func ValidateMood(in MoodInput) error {
	scores := []struct {
		field string
		value *float64
	}{
		{"happiness", in.Happiness},
		{"anxiety", in.Anxiety},
		{"energy", in.Energy},
		{"stress", in.Stress},
	}
	for _, s := range scores {
		if s.value == nil {
			return &ValidationError{Field: s.field, Reason: "is required"}
		}
		if *s.value < moodMin || *s.value > moodMax {
			return &ValidationError{Field: s.field, Reason: fmt.Sprintf("must be between %d and %d", moodMin, moodMax)}
		}
	}
	if utf8.RuneCountInString(in.Activity) > maxActivityChars {
		return &ValidationError{Field: "activity", Reason: fmt.Sprintf("must be at most %d characters", maxActivityChars)}
	}
	if utf8.RuneCountInString(in.Notes) > maxNotesChars {
		return &ValidationError{Field: "notes", Reason: fmt.Sprintf("must be at most %d characters", maxNotesChars)}
	}
	return nil
}

// Entry converts a validated input into a MoodEntry for userID.
func (in MoodInput) Entry(userID string) MoodEntry {
	deref := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	return MoodEntry{
		UserID:    userID,
		Happiness: deref(in.Happiness),
		Anxiety:   deref(in.Anxiety),
		Energy:    deref(in.Energy),
		Stress:    deref(in.Stress),
		Activity:  in.Activity,
		Notes:     in.Notes,
	}
}
