package journal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindsage/analyzer/internal/emotion"
)

// ScoreColumn stores an ordered score map as JSON text.
type ScoreColumn struct {
	*emotion.ScoreMap
}

// Value implements the driver.Valuer interface
func (c ScoreColumn) Value() (driver.Value, error) {
	if c.ScoreMap == nil {
		return nil, nil
	}
	b, err := json.Marshal(c.ScoreMap)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (c *ScoreColumn) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		c.ScoreMap = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ScoreColumn", value)
	}
	m := emotion.NewScoreMap()
	if err := json.Unmarshal(raw, m); err != nil {
		return err
	}
	c.ScoreMap = m
	return nil
}

func (c ScoreColumn) MarshalJSON() ([]byte, error) {
	if c.ScoreMap == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.ScoreMap)
}

func (c *ScoreColumn) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.ScoreMap = nil
		return nil
	}
	m := emotion.NewScoreMap()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	c.ScoreMap = m
	return nil
}

// Entry is a persisted journal entry with its analysis.
type Entry struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	UserID          string      `db:"user_id" json:"user_id"`
	Content         string      `db:"content" json:"content"`
	Summary         string      `db:"summary" json:"summary"`
	DominantEmotion string      `db:"dominant_emotion" json:"dominant_emotion"`
	Intensity       float64     `db:"intensity" json:"intensity"`
	Emotions        ScoreColumn `db:"emotions" json:"emotions"`
	SuicideRisk     bool        `db:"suicide_risk" json:"suicide_risk"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// MoodEntry is a self-reported mood check-in. Scores are 0-100 sliders.
type MoodEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Happiness float64   `db:"happiness" json:"happiness"`
	Anxiety   float64   `db:"anxiety" json:"anxiety"`
	Energy    float64   `db:"energy" json:"energy"`
	Stress    float64   `db:"stress" json:"stress"`
	Activity  string    `db:"activity" json:"activity"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
