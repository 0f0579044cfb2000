package generation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/workvisa/internal/domain/document"
)

// BuildPrompt renders the question and its context documents into the user
// message. Documents are numbered from 1 in retrieval order. An empty context
// leaves the information section blank.
func BuildPrompt(question string, docs []document.Document) string {
	var info strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&info, "%d. 제목: %s\n   설명: %s\n", i+1, d.Title, d.Description)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "사용자 질문: \"%s\"\n", question)
	b.WriteString("아래는 관련 정보입니다:\n")
	b.WriteString(info.String())
	b.WriteString("\n위 정보를 바탕으로 사용자에게 알기 쉽게 답변을 작성해 주세요.")
	return b.String()
}
