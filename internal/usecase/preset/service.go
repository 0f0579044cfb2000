// Package preset resolves questions against the curated answer table.
package preset

import (
	"github.com/kailas-cloud/workvisa/internal/domain/answer"
	dompreset "github.com/kailas-cloud/workvisa/internal/domain/preset"
)

// MatchKind reports where in the table a question was found.
type MatchKind int

const (
	// Miss means no label matched; the caller falls back to retrieval.
	Miss MatchKind = iota
	// Direct is a top-level label.
	Direct
	// Nested is a label inside a top-level menu, one or two levels down.
	Nested
)

func (k MatchKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Nested:
		return "nested"
	default:
		return "miss"
	}
}

// Match is the lookup outcome. Result is meaningful only when Kind != Miss.
type Match struct {
	Kind   MatchKind
	Result answer.Result
}

// Hit reports whether the question was found.
func (m Match) Hit() bool { return m.Kind != Miss }

// Service looks questions up in an immutable table. Safe for concurrent use.
type Service struct {
	table dompreset.Table
}

// New creates a lookup service over table.
func New(table dompreset.Table) *Service {
	return &Service{table: table}
}

// Len returns the number of top-level questions.
func (s *Service) Len() int { return s.table.Len() }

// Lookup finds question by exact label match. Search order: top-level labels,
// then for each top-level menu in source order its own labels followed by the
// labels of its sub-menus.
func (s *Service) Lookup(question string) Match {
	root := s.table.Root()

	if n, ok := root.Get(question); ok {
		return Match{Kind: Direct, Result: resolve(n, answer.SourcePresetDirect)}
	}

	var found Match
	root.Each(func(_ string, top dompreset.Node) bool {
		if top.Kind() != dompreset.KindMenu {
			return true
		}
		menu := top.Menu()

		if n, ok := menu.Get(question); ok {
			found = Match{Kind: Nested, Result: resolve(n, answer.SourcePresetNested)}
			return false
		}

		menu.Each(func(_ string, sub dompreset.Node) bool {
			if sub.Kind() != dompreset.KindMenu {
				return true
			}
			if n, ok := sub.Menu().Get(question); ok {
				found = Match{Kind: Nested, Result: resolve(n, answer.SourcePresetNested)}
				return false
			}
			return true
		})
		return !found.Hit()
	})
	return found
}

// resolve turns a matched node into a menu of labels or a rendered answer.
func resolve(n dompreset.Node, source answer.Source) answer.Result {
	if n.Kind() == dompreset.KindMenu {
		return answer.SubQuestions(n.Menu().Keys(), source)
	}
	return answer.Text(n.Render(), source)
}
