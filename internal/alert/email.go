package alert

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig holds the mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailService batches all recipients into a single SMTP send. A transport
// failure is returned as an error rather than partially succeeding silently.
type EmailService struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(config SMTPConfig) *EmailService {
	return &EmailService{
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// SendEmergencyAlert delivers the rich notification with the AI summary.
func (s *EmailService) SendEmergencyAlert(recipients []string, userName string, lat, lon float64, analysis string, at time.Time) error {
	subject := fmt.Sprintf("EMERGENCY ALERT from %s", userName)

	var body strings.Builder
	fmt.Fprintf(&body, "%s has triggered an emergency alert.\r\n\r\n", userName)
	fmt.Fprintf(&body, "AI analysis of their audio: %s\r\n\r\n", analysis)
	fmt.Fprintf(&body, "Last known location: %s\r\n", mapsLink(lat, lon))
	fmt.Fprintf(&body, "Time: %s\r\n\r\n", at.UTC().Format(time.RFC1123))
	body.WriteString("Please try to contact them immediately. If you cannot reach them, consider contacting emergency services.\r\n")

	return s.send(recipients, subject, body.String())
}

// SendFallbackAlert delivers the basic notification used when audio
// processing was unavailable. Location and time are always included.
func (s *EmailService) SendFallbackAlert(recipients []string, userName string, lat, lon float64, at time.Time) error {
	subject := fmt.Sprintf("EMERGENCY ALERT from %s", userName)

	var body strings.Builder
	fmt.Fprintf(&body, "%s has triggered an emergency alert.\r\n\r\n", userName)
	body.WriteString("Audio analysis is unavailable for this alert.\r\n\r\n")
	fmt.Fprintf(&body, "Last known location: %s\r\n", mapsLink(lat, lon))
	fmt.Fprintf(&body, "Time: %s\r\n\r\n", at.UTC().Format(time.RFC1123))
	body.WriteString("Please try to contact them immediately. If you cannot reach them, consider contacting emergency services.\r\n")

	return s.send(recipients, subject, body.String())
}

func (s *EmailService) send(recipients []string, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: PathPal Alerts <%s>\r\n", s.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := s.config.Host + ":" + s.config.Port
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	if err := s.sendMail(addr, auth, s.config.From, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func mapsLink(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%f,%f", lat, lon)
}
