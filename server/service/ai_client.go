package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studyhub/server/domain"
)

const defaultAITimeout = 30 * time.Second

// AIClient talks to a hosted OpenAI-compatible chat completions API. Every
// feature built on it is a prompt template plus one call.
type AIClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func NewAIClient(endpoint, apiKey, model string) *AIClient {
	return &AIClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: defaultAITimeout},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *AIClient) complete(ctx context.Context, system, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("model status %d", resp.StatusCode)
	}
	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (c *AIClient) Summarize(ctx context.Context, content string) (string, error) {
	return c.complete(ctx,
		"You summarize study notes for students. Reply with a concise summary only.",
		"Summarize the following study note:\n\n"+content)
}

// GenerateQuiz asks the model for a JSON array of questions and parses it.
func (c *AIClient) GenerateQuiz(ctx context.Context, content string, count int) ([]domain.QuizQuestion, error) {
	if count <= 0 {
		count = 5
	}
	prompt := fmt.Sprintf(`Create %d multiple-choice questions from the study note below.
Reply with a JSON array only, each element shaped as
{"prompt":"...","options":["..."],"answer":"...","explanation":"..."}.

%s`, count, content)
	raw, err := c.complete(ctx, "You write quizzes for students. Reply with valid JSON only.", prompt)
	if err != nil {
		return nil, err
	}
	var questions []domain.QuizQuestion
	if err := json.Unmarshal([]byte(extractJSON(raw)), &questions); err != nil {
		return nil, fmt.Errorf("parse quiz response: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("model returned no questions")
	}
	return questions, nil
}

func (c *AIClient) GenerateFlashcards(ctx context.Context, content string, count int) ([]domain.Flashcard, error) {
	if count <= 0 {
		count = 10
	}
	prompt := fmt.Sprintf(`Create %d flashcards from the study note below.
Reply with a JSON array only, each element shaped as {"front":"...","back":"..."}.

%s`, count, content)
	raw, err := c.complete(ctx, "You write flashcards for students. Reply with valid JSON only.", prompt)
	if err != nil {
		return nil, err
	}
	var cards []domain.Flashcard
	if err := json.Unmarshal([]byte(extractJSON(raw)), &cards); err != nil {
		return nil, fmt.Errorf("parse flashcard response: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("model returned no flashcards")
	}
	return cards, nil
}

// Moderate implements Moderator. Callers treat an error as "not flagged".
func (c *AIClient) Moderate(ctx context.Context, text string) (bool, error) {
	raw, err := c.complete(ctx,
		"You are a content moderator for a student chat. Reply with exactly YES if the message is abusive, hateful, or otherwise disallowed, and NO otherwise.",
		text)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToUpper(raw), "YES"), nil
}

func (c *AIClient) Insight(ctx context.Context, description string) (string, error) {
	return c.complete(ctx,
		"You analyze study activity and give one short, encouraging insight.",
		description)
}

// extractJSON trims code fences and surrounding prose the model sometimes
// wraps around a JSON body.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = raw[idx+3:]
		raw = strings.TrimPrefix(raw, "json")
		if end := strings.Index(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
	}
	start := strings.IndexAny(raw, "[{")
	if start < 0 {
		return raw
	}
	end := strings.LastIndexAny(raw, "]}")
	if end < start {
		return raw
	}
	return strings.TrimSpace(raw[start : end+1])
}
