package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: reply}}},
		})
	}))
}

func TestGenerateQuizParsesFencedJSON(t *testing.T) {
	reply := "Here you go:\n```json\n[{\"prompt\":\"2+2?\",\"options\":[\"3\",\"4\"],\"answer\":\"4\",\"explanation\":\"basic\"}]\n```"
	srv := completionServer(t, reply)
	defer srv.Close()

	client := NewAIClient(srv.URL, "test-key", "test-model")
	questions, err := client.GenerateQuiz(context.Background(), "arithmetic", 1)
	if err != nil {
		t.Fatalf("generate quiz: %v", err)
	}
	if len(questions) != 1 || questions[0].Answer != "4" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
}

func TestGenerateQuizRejectsNonJSON(t *testing.T) {
	srv := completionServer(t, "I cannot help with that.")
	defer srv.Close()

	client := NewAIClient(srv.URL, "test-key", "test-model")
	if _, err := client.GenerateQuiz(context.Background(), "arithmetic", 1); err == nil {
		t.Fatal("expected a parse error for prose output")
	}
}

func TestModerateReadsVerdict(t *testing.T) {
	srv := completionServer(t, "YES — this is abusive.")
	defer srv.Close()

	client := NewAIClient(srv.URL, "test-key", "test-model")
	flagged, err := client.Moderate(context.Background(), "some text")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if !flagged {
		t.Fatal("expected flagged verdict")
	}

	srv2 := completionServer(t, "no")
	defer srv2.Close()
	client2 := NewAIClient(srv2.URL, "test-key", "test-model")
	flagged, err = client2.Moderate(context.Background(), "some text")
	if err != nil || flagged {
		t.Fatalf("expected clean verdict, got flagged=%v err=%v", flagged, err)
	}
}

func TestModerateErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewAIClient(srv.URL, "test-key", "test-model")
	if _, err := client.Moderate(context.Background(), "text"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n[1,2]\n```":         "[1,2]",
		"Sure! Here it is: [1,2]":     "[1,2]",
		"{\"a\":1}":                   "{\"a\":1}",
		"prefix {\"a\":[1,2]} suffix": "{\"a\":[1,2]}",
	}
	for in, want := range cases {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
