// Package answer holds the resolver output.
package answer

// Kind tags the Result variant.
type Kind int

const (
	// KindAnswer is a final text answer.
	KindAnswer Kind = iota
	// KindSubQuestions is a menu of follow-up questions.
	KindSubQuestions
)

// Source records which path produced a Result.
type Source string

const (
	// SourcePresetDirect is an exact top-level preset hit.
	SourcePresetDirect Source = "preset_direct"
	// SourcePresetNested is a hit on a sub-question label.
	SourcePresetNested Source = "preset_nested"
	// SourceRetrieval is the retrieval and generation fallback.
	SourceRetrieval Source = "retrieval"
)

// Result is either an answer text or a list of sub-questions.
type Result struct {
	kind         Kind
	text         string
	subQuestions []string
	source       Source
}

// Text creates an answer Result.
func Text(text string, source Source) Result {
	return Result{kind: KindAnswer, text: text, source: source}
}

// SubQuestions creates a sub-question menu Result. The slice is copied.
func SubQuestions(questions []string, source Source) Result {
	qs := make([]string, len(questions))
	copy(qs, questions)
	return Result{kind: KindSubQuestions, subQuestions: qs, source: source}
}

// Kind returns the variant tag.
func (r Result) Kind() Kind { return r.kind }

// Text returns the answer text. Empty for sub-question results.
func (r Result) Text() string { return r.text }

// SubQuestions returns the menu labels. Nil for answer results.
func (r Result) SubQuestions() []string { return r.subQuestions }

// Source returns the resolution path.
func (r Result) Source() Source { return r.source }

// IsAnswer reports whether r carries answer text.
func (r Result) IsAnswer() bool { return r.kind == KindAnswer }
