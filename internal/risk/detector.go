// Package risk flags crisis and self-harm language in journal text.
//
// Detection is a case-insensitive substring scan over a fixed lexicon. It
// performs no I/O and never depends on the inference path, so it runs to
// completion even when every remote component is down.
package risk

import "strings"

// CrisisResources is the static text returned alongside a raised flag.
const CrisisResources = "It sounds like you may be going through something very painful. " +
	"You are not alone. If you are in immediate danger, call your local emergency number. " +
	"In the US you can call or text 988 (Suicide & Crisis Lifeline); in the UK call Samaritans at 116 123; " +
	"elsewhere, find a helpline at https://findahelpline.com."

var crisisPhrases = []string{
	"kill myself",
	"want to die",
	"end my life",
	"no reason to live",
	"not worth living",
	"better off dead",
	"goodbye forever",
	"can't take it anymore",
	"give up",
	"suicide",
	"suicidal",
	"hurt myself",
	"self harm",
}

// Detector scans text for crisis phrases.
type Detector struct {
	phrases []string
}

// NewDetector returns a detector over the built-in lexicon.
func NewDetector() *Detector {
	return &Detector{phrases: crisisPhrases}
}

// Phrases returns a copy of the lexicon.
func (d *Detector) Phrases() []string {
	out := make([]string, len(d.phrases))
	copy(out, d.phrases)
	return out
}

// Detect reports whether the lowercased text contains any crisis phrase.
func (d *Detector) Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
