// Package mail renders the HTML templates of outgoing mail and delivers
// them over SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/contact-book/internal/config"
	"github.com/iliyamo/contact-book/internal/queue"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type page struct {
	Username string
	Link     string
	Token    string
}

var subjects = map[queue.MailKind]string{
	queue.MailEmailVerify:   "Confirm your email",
	queue.MailPasswordReset: "Reset your password",
}

// Render returns the subject and HTML body of ev.
func Render(ev queue.MailEvent) (subject, body string, err error) {
	subject, ok := subjects[ev.Kind]
	if !ok {
		return "", "", fmt.Errorf("no template for %q", ev.Kind)
	}
	base := strings.TrimRight(ev.BaseURL, "/")
	p := page{Username: ev.Username, Token: ev.Token}
	switch ev.Kind {
	case queue.MailEmailVerify:
		p.Link = base + "/api/auth/confirm_email/" + ev.Token
	case queue.MailPasswordReset:
		p.Link = base + "/api/auth/password-reset/confirm"
	}
	if p.Username == "" {
		p.Username = ev.Email
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(ev.Kind)+".html", p); err != nil {
		return "", "", fmt.Errorf("render %s: %w", ev.Kind, err)
	}
	return subject, buf.String(), nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers mail through an SMTP relay.
type Sender struct {
	cfg  config.MailConfig
	send sendFunc
	now  func() time.Time
}

func NewSender(cfg config.MailConfig) *Sender {
	return &Sender{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Send renders ev and hands it to the relay.  net/smtp has no context
// support, so ctx is only checked before dialing.
func (s *Sender) Send(ctx context.Context, ev queue.MailEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := Render(ev)
	if err != nil {
		return err
	}
	msg := s.compose(ev.Email, subject, body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	return s.send(addr, auth, s.cfg.From, []string{ev.Email}, msg)
}

func (s *Sender) compose(to, subject, body string) []byte {
	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return b.Bytes()
}
