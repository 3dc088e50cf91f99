package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt through the chat-completion endpoint and returns
// the assistant's text.
func (c *Client) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body, err := c.doPost(ctx, "/chat/completions", chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("openai: decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: chat response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractJSON pulls the first balanced JSON object out of a model response
// that may wrap it in prose or a markdown fence. Returns "" when no object
// is found.
func ExtractJSON(s string) string {
	// Strip a markdown fence first; models frequently emit ```json ... ```.
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		}
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
