package conversation

import "strings"

// Result is the backend's structured reply for one turn. The zero value is the
// empty result: nothing to render.
type Result struct {
	// Texts holds candidate reply strings in backend order; the first non-empty one is authoritative.
	Texts []string
	// Payloads holds custom structured payloads, decoded to plain maps.
	Payloads []map[string]any
}

// IsEmpty reports whether the result carries no actionable content.
func (r Result) IsEmpty() bool {
	if len(r.Payloads) > 0 {
		return false
	}
	for _, text := range r.Texts {
		if strings.TrimSpace(text) != "" {
			return false
		}
	}
	return true
}
