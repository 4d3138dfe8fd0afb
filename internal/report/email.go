// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/pdiddy/inis-qa/pkg/types"
)

// DefaultRecipient receives the daily QA summary when no recipient is
// configured.
const DefaultRecipient = "inis.feedback@iaea.org"

// Sender mails QA summaries over SMTP with STARTTLS and app-password
// auth. Now is overridable so tests can pin the attachment name.
type Sender struct {
	cfg  types.EmailConfig
	Now  func() time.Time
	send func(m *gomail.Message) error
}

// NewSender validates the email configuration and returns a Sender.
func NewSender(cfg types.EmailConfig) (*Sender, error) {
	if cfg.From == "" || cfg.AppPassword == "" {
		return nil, fmt.Errorf("email configuration incomplete: missing from address or app password")
	}
	if cfg.To == "" {
		cfg.To = DefaultRecipient
	}

	s := &Sender{cfg: cfg}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.From, cfg.AppPassword)
		return d.DialAndSend(m)
	}
	return s, nil
}

func (s *Sender) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Send delivers a plain-text message, attaching the file at
// attachmentPath (if non-empty) as qa_results_YYYYMMDD.zip. The
// attachment scratch file is removed after the send attempt, whether it
// succeeded or not.
func (s *Sender) Send(subject, body, attachmentPath string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if attachmentPath != "" {
		defer os.Remove(attachmentPath)
		name := fmt.Sprintf("qa_results_%s.zip", s.now().Format("20060102"))
		m.Attach(attachmentPath, gomail.Rename(name))
	}

	if err := s.send(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", s.cfg.To, err)
	}
	return nil
}

// SendQAReport aggregates the reports in qaFolder and mails the summary
// with the raw report files attached as a ZIP.
func SendQAReport(qaFolder string, cfg types.EmailConfig, date string) error {
	sender, err := NewSender(cfg)
	if err != nil {
		return err
	}

	agg, err := Scan(qaFolder)
	if err != nil {
		return err
	}

	body := FormatEmailBody(agg, date, sender.now())
	subject := fmt.Sprintf("INIS QA Check Results - %s", date)

	attachment, err := CreateArchive(qaFolder)
	if err != nil {
		return err
	}
	return sender.Send(subject, body, attachment)
}
