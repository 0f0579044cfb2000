// Package corpus loads scraped reference documents from a directory of JSON files.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/domain"
	"github.com/kailas-cloud/workvisa/internal/domain/document"
)

const untitled = "Untitled"

// Options controls loader behaviour.
type Options struct {
	// Strict fails the whole load on the first unreadable or malformed file.
	Strict bool
	Logger *zap.Logger
}

// record is the scraper output shape. url and type are tolerated and ignored.
type record struct {
	Title   *string `json:"title"`
	Name    *string `json:"name"`
	Content *string `json:"content"`
}

// Load reads every *.json file in dir in lexical filename order.
// The position of a document in the returned slice is its retrieval id.
func Load(ctx context.Context, dir string, opts Options) ([]document.Document, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir %s: %w", domain.ErrCorpusLoad, dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]document.Document, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}

		path := filepath.Join(dir, name)
		doc, err := loadFile(path)
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorpusLoad, path, err)
			}
			log.Warn("Skipping malformed corpus file", zap.String("path", path), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	log.Info("Corpus loaded", zap.String("dir", dir), zap.Int("files", len(names)), zap.Int("documents", len(docs)))
	return docs, nil
}

func loadFile(path string) (document.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return document.Document{}, fmt.Errorf("read: %w", err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return document.Document{}, fmt.Errorf("decode: %w", err)
	}

	title := untitled
	switch {
	case r.Title != nil:
		title = *r.Title
	case r.Name != nil:
		title = *r.Name
	}
	var content string
	if r.Content != nil {
		content = *r.Content
	}

	return document.New(sanitizeUTF8(title), sanitizeUTF8(content)), nil
}

// sanitizeUTF8 drops invalid byte sequences so prompts and database rows stay valid text.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
