package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model: %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("unexpected language: %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
			if header.Filename != "alert.wav" {
				t.Errorf("unexpected filename: %q", header.Filename)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"  someone is following me \n"}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = srv.URL

	text, err := client.Transcribe(context.Background(), []byte("audio-bytes"), "alert.wav")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "someone is following me" {
		t.Fatalf("transcript should be trimmed, got %q", text)
	}
}

func TestTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = srv.URL

	_, err := client.Transcribe(context.Background(), []byte("audio"), "alert.wav")
	if err == nil {
		t.Fatalf("expected error on non-200")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model: %q", req.Model)
		}
		if req.Temperature != 0.1 {
			t.Errorf("unexpected temperature: %v", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Content != "You are a security expert analyzing emergency audio." {
			t.Errorf("unexpected system message: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, `Transcript: "someone is following me"`) {
			t.Errorf("prompt should embed the transcript: %q", req.Messages[1].Content)
		}
		if !strings.Contains(req.Messages[1].Content, "One-sentence summary:") {
			t.Errorf("prompt should ask for a one-sentence summary")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":" The speaker reports being followed.\n"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = srv.URL

	summary, err := client.Analyze(context.Background(), "someone is following me")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if summary != "The speaker reports being followed." {
		t.Fatalf("summary should be trimmed, got %q", summary)
	}
}

func TestAnalyzeNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = srv.URL

	if _, err := client.Analyze(context.Background(), "text"); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}
