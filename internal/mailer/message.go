package mailer

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"
)

// Confirmation is one email-confirmation request.
type Confirmation struct {
	Email    string
	Username string
	Token    string
}

// Message is the payload published for the mail relay.
type Message struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Link     string    `json:"link"`
	Template string    `json:"template"`
	QueuedAt time.Time `json:"queued_at"`
}

const confirmSubject = "Confirm your email"

var confirmBody = template.Must(template.New("confirm").Parse(`Hello {{.Username}},

Please confirm your email address by following the link below:

{{.Link}}

If you did not create an account you can ignore this message.
`))

// Renderer turns a Confirmation into a Message with an absolute confirm link.
type Renderer struct {
	baseURL string
	now     func() time.Time
}

func NewRenderer(baseURL string, now func() time.Time) (*Renderer, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("public base url %q must be absolute", baseURL)
	}
	if now == nil {
		now = time.Now
	}
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), now: now}, nil
}

// Link returns the confirm URL for token.
func (r *Renderer) Link(token string) string {
	return r.baseURL + "/api/auth/confirm/" + url.PathEscape(token)
}

func (r *Renderer) Render(c Confirmation) (Message, error) {
	link := r.Link(c.Token)
	var body bytes.Buffer
	if err := confirmBody.Execute(&body, struct {
		Username string
		Link     string
	}{Username: c.Username, Link: link}); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Message{
		To:       c.Email,
		Subject:  confirmSubject,
		Body:     body.String(),
		Link:     link,
		Template: "email_confirm",
		QueuedAt: r.now().UTC(),
	}, nil
}
