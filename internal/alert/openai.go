package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	transcribeTimeout = 30 * time.Second
	analyzeTimeout    = 10 * time.Second

	transcribeModel = "whisper-1"
	analyzeModel    = "gpt-4o-mini"

	analyzeSystemPrompt = "You are a security expert analyzing emergency audio."
)

func analysisPrompt(transcript string) string {
	return `
You are a security expert analyzing an audio transcript from a user's emergency alert.
Your task is to provide a concise, one-sentence summary of the situation for an emergency contact.
Do not be conversational. Be direct and factual.
Focus on signs of distress, key words (like "help," "stop," "go away"), and any contextual clues (like "he's following me," "I'm near the library").
If the audio is unclear or benign (e.g., background noise, pocket dial), state that "The situation is unclear from the audio."

Transcript: "` + transcript + `"

One-sentence summary:
`
}

// OpenAIClient calls the transcription and chat-completion endpoints.
// Transcription gets the larger timeout because audio processing is the
// heavier operation.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com",
	}
}

// Transcribe sends the audio to the speech-to-text endpoint and returns the
// transcript text, which may be empty for silent or unintelligible audio.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if err := writer.WriteField("model", transcribeModel); err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if err := writer.WriteField("language", "en"); err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription API status %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("transcription response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// Analyze asks the chat model for a one-sentence summary of the transcript.
func (c *OpenAIClient) Analyze(ctx context.Context, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"model": analyzeModel,
		"messages": []map[string]string{
			{"role": "system", "content": analyzeSystemPrompt},
			{"role": "user", "content": analysisPrompt(transcript)},
		},
		"max_tokens":  100,
		"temperature": 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("analysis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("analysis API status %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("analysis response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("analysis response: no choices returned")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
