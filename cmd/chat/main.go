// Command chat is an interactive terminal client for the chatbot server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/kailas-cloud/workvisa/internal/config"
	"github.com/kailas-cloud/workvisa/internal/version"
)

func main() {
	_ = config.LoadDotEnv(".env")

	serverURL := flag.String("url", envOr("WORKVISA_URL", "http://localhost:8000"), "Chatbot server URL")
	apiKey := flag.String("api-key", os.Getenv("WORKVISA_API_KEY"), "Bearer API key, if the server requires one")
	timeout := flag.Duration("timeout", 90*time.Second, "Request timeout")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("chat", version.String())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := newAPIClient(*serverURL, *apiKey, *timeout)

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Println(boldGreen("외국인 근로자 고용허가제 상담"))
	fmt.Printf("Server: %s\n", boldCyan(*serverURL))
	fmt.Println("질문을 입력하세요. 메뉴가 나오면 번호로 선택할 수 있습니다. 'exit' 입력 시 종료합니다.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	var menu []string

	for {
		fmt.Print(boldGreen("질문: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		question := pickSubQuestion(input, menu)
		reply, err := client.ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintln(os.Stderr, red("오류: "+err.Error()))
			continue
		}

		switch {
		case reply.Answer != nil:
			menu = nil
			fmt.Println(boldCyan("답변: ") + *reply.Answer)
		default:
			menu = reply.SubQuestions
			fmt.Println(boldCyan("세부 질문을 선택하세요:"))
			for i, q := range menu {
				fmt.Printf("  %s %s\n", yellow(fmt.Sprintf("%d.", i+1)), q)
			}
		}
		fmt.Println()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
