package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTP sends mail through a plain SMTP relay. TLS-terminating relays sit in
// front of it in every deployed environment.
type SMTP struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	DialTimeout time.Duration
}

func (s *SMTP) SendPasswordReset(ctx context.Context, email, token, continueURL string) error {
	link := continueURL
	if link != "" {
		sep := "?"
		if strings.Contains(link, "?") {
			sep = "&"
		}
		link = link + sep + "token=" + token
	}

	body := "A password reset was requested for your account.\r\n\r\n"
	if link != "" {
		body += "Open the link below to choose a new password:\r\n" + link + "\r\n\r\n"
	} else {
		body += "Your reset token:\r\n" + token + "\r\n\r\n"
	}
	body += "If you did not request this, you can ignore this message."

	return s.send(ctx, email, "Password reset", body)
}

func (s *SMTP) SendOTP(ctx context.Context, identifier, otpType, code string) error {
	subject := "Your verification code"
	if otpType == "login" {
		subject = "Your sign-in code"
	}
	body := fmt.Sprintf("Your one-time code is %s.\r\n\r\nIt expires shortly; do not share it with anyone.", code)
	return s.send(ctx, identifier, subject, body)
}

func (s *SMTP) send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.Host, s.Port)

	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}
