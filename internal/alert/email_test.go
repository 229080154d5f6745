package alert

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func newTestEmailService() (*EmailService, *capturedSend) {
	captured := &capturedSend{}
	svc := NewEmailService(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "user",
		Password: "pass",
		From:     "alerts@pathpal.app",
	})
	svc.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return captured.err
	}
	return svc, captured
}

type capturedSend struct {
	addr string
	from string
	to   []string
	msg  string
	err  error
}

func TestSendEmergencyAlert(t *testing.T) {
	svc, captured := newTestEmailService()

	at := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	err := svc.SendEmergencyAlert([]string{"mom@example.com", "dad@example.com"},
		"Ada", 43.6532, -79.3832, "The speaker reports being followed.", at)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if captured.addr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr: %q", captured.addr)
	}
	if len(captured.to) != 2 {
		t.Fatalf("all recipients must go out in one send, got %v", captured.to)
	}
	if !strings.Contains(captured.msg, "EMERGENCY ALERT from Ada") {
		t.Fatalf("subject missing: %q", captured.msg)
	}
	if !strings.Contains(captured.msg, "The speaker reports being followed.") {
		t.Fatalf("analysis missing from body")
	}
	if !strings.Contains(captured.msg, "https://maps.google.com/?q=43.653200,-79.383200") {
		t.Fatalf("maps link missing from body: %q", captured.msg)
	}
}

func TestSendFallbackAlert(t *testing.T) {
	svc, captured := newTestEmailService()

	err := svc.SendFallbackAlert([]string{"mom@example.com"}, "Ada", 43.65, -79.38, time.Now())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(captured.msg, "Audio analysis is unavailable") {
		t.Fatalf("fallback wording missing: %q", captured.msg)
	}
	if !strings.Contains(captured.msg, "https://maps.google.com/?q=") {
		t.Fatalf("maps link missing from fallback body")
	}
}

func TestSendTransportFailure(t *testing.T) {
	svc, captured := newTestEmailService()
	captured.err = errors.New("connection refused")

	err := svc.SendEmergencyAlert([]string{"mom@example.com"}, "Ada", 0, 0, "x", time.Now())
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("transport failure must surface: %v", err)
	}
}
