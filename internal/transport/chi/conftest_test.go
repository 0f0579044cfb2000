package chi

import (
	"context"

	domanswer "github.com/kailas-cloud/workvisa/internal/domain/answer"
	healthuc "github.com/kailas-cloud/workvisa/internal/usecase/health"
)

type mockResolver struct {
	result   domanswer.Result
	err      error
	panicMsg string
	calls    int
	lastQ    string
}

func (m *mockResolver) Resolve(_ context.Context, question string) (domanswer.Result, error) {
	m.calls++
	m.lastQ = question
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.result, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }
