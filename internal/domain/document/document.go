// Package document holds the retrieval corpus entry.
package document

// Document is one scraped reference page. Its position in the loaded corpus is
// its retrieval id.
type Document struct {
	Title       string
	Description string
}

// New creates a Document.
func New(title, description string) Document {
	return Document{Title: title, Description: description}
}
