package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

// SendMail sends a plain HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	sender := senderAddress()

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, smtpAuth(host), sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendInvoice sends a receipt email with the invoice PDF attached. Returns
// false when delivery failed; callers log and move on, mail is best-effort.
func SendInvoice(to string, subject string, body string, attachmentPath string) bool {
	pdf, err := os.ReadFile(attachmentPath)
	if err != nil {
		log.Printf("invoice attachment unreadable (%s): %v", attachmentPath, err)
		return false
	}

	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	sender := senderAddress()
	addr := fmt.Sprintf("%s:%s", host, port)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", sender)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		log.Printf("invoice mail assembly failed: %v", err)
		return false
	}
	htmlPart.Write([]byte(body))

	attachment, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/pdf"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filepath.Base(attachmentPath))},
	})
	if err != nil {
		log.Printf("invoice mail assembly failed: %v", err)
		return false
	}
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(pdf)))
	base64.StdEncoding.Encode(encoded, pdf)
	attachment.Write(encoded)

	writer.Close()

	if err := smtp.SendMail(addr, smtpAuth(host), sender, []string{to}, buf.Bytes()); err != nil {
		log.Printf("SMTP send error: %v", err)
		return false
	}
	log.Printf("Invoice email sent to %s via %s", to, addr)
	return true
}

func senderAddress() string {
	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}
	return sender
}

func smtpAuth(host string) smtp.Auth {
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return auth
}
