package model

// Wildcard marks a template position whose token varies across matched lines.
const Wildcard = "<*>"

// SentinelTemplateID is the reserved template for lines whose body tokenizes
// to nothing. Regular template IDs start at 1.
const SentinelTemplateID = 0

// Template is a generalized pattern covering one or more structurally
// similar log lines. IDs are assigned in creation order and are stable for
// the duration of a run only.
type Template struct {
	ID           int      `json:"id"`
	Tokens       []string `json:"tokens"` // literal tokens and Wildcard markers
	ExampleCount int      `json:"example_count"`
}

// Text returns the space-joined token pattern.
func (t Template) Text() string {
	if len(t.Tokens) == 0 {
		return ""
	}
	n := 0
	for _, tok := range t.Tokens {
		n += len(tok) + 1
	}
	buf := make([]byte, 0, n)
	for i, tok := range t.Tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, tok...)
	}
	return string(buf)
}

// Classification is the label triple assigned to one template.
type Classification struct {
	GoldenSignal  string  `json:"golden_signal"`
	FaultCategory string  `json:"fault_category"`
	Confidence    float64 `json:"confidence"`
}

// ClassifiedTemplate pairs a template with its labels. Immutable once the
// classification stage completes.
type ClassifiedTemplate struct {
	Template
	Classification
}
