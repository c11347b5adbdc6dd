// Package activity maps a dominant emotion and its intensity to a short
// suggestion. The table is static and the lookup is pure.
package activity

import "strings"

// Level is an intensity bucket.
type Level string

const (
	Low      Level = "low"
	Moderate Level = "moderate"
	High     Level = "high"
)

const (
	moderateFloor = 0.3
	highFloor     = 0.7
)

// Fallback is returned for labels missing from the table.
const Fallback = "try a short walk or a mindfulness exercise"

// Bucket places intensity into low (<0.3), moderate ([0.3,0.7)) or high (>=0.7).
func Bucket(intensity float64) Level {
	switch {
	case intensity >= highFloor:
		return High
	case intensity >= moderateFloor:
		return Moderate
	default:
		return Low
	}
}

var suggestions = map[string]map[Level]string{
	"joy": {
		Low:      "savor the moment: jot down one thing that made you smile today",
		Moderate: "share your good mood: call or message someone you care about",
		High:     "channel the energy into something creative, like music, drawing or a new recipe",
	},
	"sadness": {
		Low:      "listen to a favorite song and let yourself slow down",
		Moderate: "reach out to a friend or write down what is weighing on you",
		High:     "be gentle with yourself: rest, and consider talking to someone you trust or a counselor",
	},
	"stress": {
		Low:      "take five slow, deep breaths before your next task",
		Moderate: "break your work into small steps and take a 10-minute break",
		High:     "step away for a guided relaxation or box-breathing session, then pick just one priority",
	},
	"anxious": {
		Low:      "name five things you can see around you to ground yourself",
		Moderate: "try a 4-7-8 breathing exercise and write down your worries",
		High:     "practice a grounding exercise and reach out to someone supportive",
	},
	"fear": {
		Low:      "note what feels uncertain and one small thing you control",
		Moderate: "talk through what scares you with someone you trust",
		High:     "move to a place that feels safe and focus on slow breathing; seek support if the fear persists",
	},
	"anger": {
		Low:      "take a brief pause and a glass of water before responding",
		Moderate: "go for a brisk walk or do some physical exercise to release tension",
		High:     "step away from the situation, count to ten, and try an intense workout or journaling the feeling out",
	},
	"neutral": {
		Low:      "try something new today, even something small",
		Moderate: "plan a short activity you enjoy for later today",
		High:     "a steady day is a good day for a walk or some light reading",
	},
	"surprise": {
		Low:      "reflect on what caught you off guard",
		Moderate: "write down what surprised you and how you feel about it",
		High:     "take a moment to pause and process before deciding what to do next",
	},
	"disgust": {
		Low:      "shift your attention to something you find pleasant",
		Moderate: "change your surroundings for a while and get some fresh air",
		High:     "step away, take some deep breaths, and talk it over with someone",
	},
}

// Advisor suggests activities.
type Advisor struct{}

// NewAdvisor returns an advisor over the built-in table.
func NewAdvisor() Advisor { return Advisor{} }

// Suggest returns the suggestion for (label, bucket(intensity)). Unknown
// labels get Fallback.
func (Advisor) Suggest(label string, intensity float64) string {
	row, ok := suggestions[strings.ToLower(label)]
	if !ok {
		return Fallback
	}
	if s, ok := row[Bucket(intensity)]; ok {
		return s
	}
	return Fallback
}
