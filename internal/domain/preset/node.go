// Package preset models the curated question-and-answer table.
package preset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateKey signals a repeated question label inside one menu.
var ErrDuplicateKey = errors.New("duplicate preset key")

// Kind tags the Node variant.
type Kind int

const (
	// KindLeaf is a plain text answer.
	KindLeaf Kind = iota
	// KindList is a list of text paragraphs.
	KindList
	// KindCenters is a list of support center records.
	KindCenters
	// KindMenu maps sub-question labels to further nodes.
	KindMenu
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindList:
		return "list"
	case KindCenters:
		return "centers"
	case KindMenu:
		return "menu"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Center is a support center record.
type Center struct {
	Name    string
	Address string
	Phone   string
	URL     string // optional
}

// Format renders the record as name, address, phone and optional website lines.
func (c Center) Format() string {
	s := c.Name + "\n" + c.Address + "\n전화번호: " + c.Phone
	if c.URL != "" {
		s += "\n웹사이트: " + c.URL
	}
	return s
}

// Node is one value of the preset table.
type Node struct {
	kind    Kind
	text    string
	list    []string
	centers []Center
	menu    *Menu
}

// Leaf creates a plain text node.
func Leaf(text string) Node { return Node{kind: KindLeaf, text: text} }

// List creates a paragraph list node.
func List(items []string) Node { return Node{kind: KindList, list: items} }

// Centers creates a center record list node.
func Centers(centers []Center) Node { return Node{kind: KindCenters, centers: centers} }

// MenuNode creates a node that opens a sub-question menu.
func MenuNode(m *Menu) Node { return Node{kind: KindMenu, menu: m} }

// Kind returns the variant tag.
func (n Node) Kind() Kind { return n.kind }

// Menu returns the sub-question menu, or nil for leaves.
func (n Node) Menu() *Menu { return n.menu }

// Render returns the answer text of a leaf node. Lists and center records are
// joined with one blank line between entries. Lookup never renders a menu, it
// returns the labels as sub-questions; the menu case prints the labels one per
// line for debug output.
func (n Node) Render() string {
	switch n.kind {
	case KindLeaf:
		return n.text
	case KindList:
		return strings.Join(n.list, "\n\n")
	case KindCenters:
		parts := make([]string, len(n.centers))
		for i, c := range n.centers {
			parts[i] = c.Format()
		}
		return strings.Join(parts, "\n\n")
	case KindMenu:
		return strings.Join(n.menu.Keys(), "\n")
	default:
		return ""
	}
}

// Menu is an insertion-ordered map from question label to Node.
type Menu struct {
	keys  []string
	nodes map[string]Node
}

// NewMenu creates an empty menu.
func NewMenu() *Menu {
	return &Menu{nodes: make(map[string]Node)}
}

// Add appends a labelled node. Labels must be unique within the menu.
func (m *Menu) Add(key string, n Node) error {
	if _, ok := m.nodes[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	m.keys = append(m.keys, key)
	m.nodes[key] = n
	return nil
}

// Get looks up a label by exact match.
func (m *Menu) Get(key string) (Node, bool) {
	n, ok := m.nodes[key]
	return n, ok
}

// Keys returns the labels in source order.
func (m *Menu) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of labels.
func (m *Menu) Len() int { return len(m.keys) }

// Each calls fn for every entry in source order until fn returns false.
func (m *Menu) Each(fn func(key string, n Node) bool) {
	for _, k := range m.keys {
		if !fn(k, m.nodes[k]) {
			return
		}
	}
}

// Table is the top-level preset answer table. It is read-only once built.
type Table struct {
	root *Menu
}

// NewTable wraps a root menu. A nil root yields an empty table.
func NewTable(root *Menu) Table {
	if root == nil {
		root = NewMenu()
	}
	return Table{root: root}
}

// Root returns the top-level menu.
func (t Table) Root() *Menu {
	if t.root == nil {
		return NewMenu()
	}
	return t.root
}

// Len returns the number of top-level questions.
func (t Table) Len() int { return t.Root().Len() }
