package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type chatRequest struct {
	Question string `json:"question"`
}

type chatReply struct {
	Answer       *string  `json:"answer"`
	SubQuestions []string `json:"sub_questions"`
}

type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiClient talks to the chatbot server.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) ask(ctx context.Context, question string) (chatReply, error) {
	body, err := json.Marshal(chatRequest{Question: question})
	if err != nil {
		return chatReply{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chatbot", bytes.NewReader(body))
	if err != nil {
		return chatReply{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return chatReply{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return chatReply{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorReply
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return chatReply{}, fmt.Errorf("server returned %d %s: %s", resp.StatusCode, e.Code, e.Message)
		}
		return chatReply{}, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var reply chatReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return chatReply{}, fmt.Errorf("decode response: %w", err)
	}
	return reply, nil
}

// pickSubQuestion maps a menu number typed by the user to its label.
// Anything else is sent as a free-form question.
func pickSubQuestion(input string, menu []string) string {
	n, err := strconv.Atoi(input)
	if err != nil || strconv.Itoa(n) != input || n < 1 || n > len(menu) {
		return input
	}
	return menu[n-1]
}
