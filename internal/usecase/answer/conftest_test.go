package answer

import (
	"context"
	"testing"

	"github.com/kailas-cloud/workvisa/internal/domain/document"
	presetsrc "github.com/kailas-cloud/workvisa/internal/repository/preset"
	"github.com/kailas-cloud/workvisa/internal/usecase/preset"
)

const fixture = `{
	"A": {"A1": "ans1", "A2": "ans2"},
	"empty": "",
	"비자 정보": {"체류기간 연장": {"연장 신청은 언제?": "만료 4개월 전부터"}}
}`

func newPresets(t *testing.T) *preset.Service {
	t.Helper()
	table, err := presetsrc.Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return preset.New(table)
}

type mockRetriever struct {
	docs  []document.Document
	err   error
	calls int
	lastK int
	lastQ string
}

func (m *mockRetriever) Query(_ context.Context, text string, k int) ([]document.Document, error) {
	m.calls++
	m.lastQ = text
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.docs) {
		return m.docs[:k], nil
	}
	return m.docs, nil
}

type mockGenerator struct {
	text     string
	err      error
	calls    int
	lastDocs []document.Document
}

func (m *mockGenerator) Answer(_ context.Context, _ string, docs []document.Document) (string, error) {
	m.calls++
	m.lastDocs = docs
	return m.text, m.err
}
