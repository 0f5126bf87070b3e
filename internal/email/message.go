package email

import (
	"fmt"
	"html"
	"time"

	"github.com/wneessen/go-mail"
)

// MagicLinkMessage renders the sign-in email. ttl is quoted in the copy so
// it always matches the token lifetime.
func MagicLinkMessage(to, siteTitle, link string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	escLink := html.EscapeString(link)
	escTitle := html.EscapeString(siteTitle)

	return Message{
		To:      to,
		Subject: "Sign in to " + siteTitle,
		Text: fmt.Sprintf(
			"%s\n\nClick here to sign in: %s\n\nThis link expires in %d minutes.\n\nIf you did not request this email, you can safely ignore it.",
			siteTitle, link, minutes,
		),
		HTML: fmt.Sprintf(
			`<p style="font-size:20px;font-weight:700;">%s</p>`+
				`<p>Click the link below to sign in. This link expires in %d minutes.</p>`+
				`<p><a href="%s">Sign in</a></p>`+
				`<p style="font-size:13px;color:#9ca3af;">Or copy: %s</p>`+
				`<p style="font-size:12px;color:#9ca3af;">If you did not request this email, you can safely ignore it.</p>`,
			escTitle, minutes, escLink, escLink,
		),
	}
}

// buildMessage renders msg as multipart/alternative with a plain-text body
// and an HTML alternative.
func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
