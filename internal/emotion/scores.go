package emotion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NeutralLabel is the label used when no signal is available.
const NeutralLabel = "neutral"

// ScoreMap maps emotion labels to confidence values and remembers the order
// in which labels were first inserted. That order is the tie-break order for
// Dominant and the key order of the JSON encoding.
type ScoreMap struct {
	labels []string
	scores map[string]float64
}

// NewScoreMap returns an empty map.
func NewScoreMap() *ScoreMap {
	return &ScoreMap{scores: make(map[string]float64)}
}

// Neutral returns a fresh {"neutral": 1.0} map. Each call allocates, so
// callers may mutate the result freely.
func Neutral() *ScoreMap {
	m := NewScoreMap()
	m.Set(NeutralLabel, 1.0)
	return m
}

// Set stores v under label. Overwriting keeps the label's original position.
func (m *ScoreMap) Set(label string, v float64) {
	if m.scores == nil {
		m.scores = make(map[string]float64)
	}
	if _, ok := m.scores[label]; !ok {
		m.labels = append(m.labels, label)
	}
	m.scores[label] = v
}

// Get returns the score for label.
func (m *ScoreMap) Get(label string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m.scores[label]
	return v, ok
}

// Len returns the number of labels.
func (m *ScoreMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.labels)
}

// Labels returns labels in insertion order.
func (m *ScoreMap) Labels() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Map returns the scores as a plain map.
func (m *ScoreMap) Map() map[string]float64 {
	out := make(map[string]float64, m.Len())
	if m == nil {
		return out
	}
	for l, v := range m.scores {
		out[l] = v
	}
	return out
}

// Dominant is the label with the highest score and that score.
type Dominant struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
}

// Dominant returns the maximum-score label. Ties go to the label inserted
// first. An empty map yields neutral/1.0.
func (m *ScoreMap) Dominant() Dominant {
	if m.Len() == 0 {
		return Dominant{Label: NeutralLabel, Intensity: 1.0}
	}
	best := Dominant{Label: m.labels[0], Intensity: m.scores[m.labels[0]]}
	for _, l := range m.labels[1:] {
		if v := m.scores[l]; v > best.Intensity {
			best = Dominant{Label: l, Intensity: v}
		}
	}
	return best
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m ScoreMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range m.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(m.scores[l], 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (m *ScoreMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("score map: expected object, got %v", tok)
	}
	fresh := NewScoreMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("score map: expected key, got %v", tok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("score map: value for %q: %w", label, err)
		}
		fresh.Set(label, v)
	}
	*m = *fresh
	return nil
}
