package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ChatTurn is one prior exchange passed as generation history.
type ChatTurn struct {
	Role    string
	Content string
}

const defaultSystemPrompt = "You are Selene, a supportive menstrual-health assistant. " +
	"Answer briefly and kindly, never give a medical diagnosis, and suggest seeing " +
	"a healthcare professional for anything serious."

// GenerateAssistantReply calls the OpenAI Responses API and returns the
// assistant text. The assessment pattern, when present, is folded into the
// instructions so replies account for the user's reported cycle profile.
func GenerateAssistantReply(ctx context.Context, userText string, history []ChatTurn, assessmentPattern string) (string, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := getenv("OPENAI_MODEL", "gpt-4.1-mini")

	systemPrompt := getenv("OPENAI_SYSTEM_PROMPT", defaultSystemPrompt)
	if p := strings.TrimSpace(assessmentPattern); p != "" {
		systemPrompt += fmt.Sprintf(" The user's latest assessment pattern is %q.", p)
	}

	reqBody := map[string]any{
		"model":        model,
		"instructions": systemPrompt,
		"input":        buildInput(userText, history),
	}

	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		"https://api.openai.com/v1/responses",
		bytes.NewReader(b),
	)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
					if sb.Len() > 0 {
						sb.WriteString("\n")
					}
					sb.WriteString(c.Text)
				}
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from model (no output_text items found)")
	}

	return out, nil
}

// buildInput folds recent history into a single input block. Kept short:
// the last 10 turns are plenty of context for a health chat.
func buildInput(userText string, history []ChatTurn) string {
	if len(history) == 0 {
		return userText
	}
	start := 0
	if len(history) > 10 {
		start = len(history) - 10
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, turn := range history[start:] {
		c := strings.TrimSpace(turn.Content)
		if c == "" || c == strings.TrimSpace(userText) {
			continue
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nUser's latest message:\n")
	b.WriteString(userText)
	return b.String()
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
