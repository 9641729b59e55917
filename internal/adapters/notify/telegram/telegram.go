package telegram

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
)

const (
	DefaultAPIBase = "https://api.telegram.org"
	requestTimeout = 10 * time.Second
	maxErrorBody   = 512
)

type Notifier struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
	now     func() time.Time
}

type Option func(*Notifier)

func WithAPIBase(base string) Option {
	return func(n *Notifier) {
		n.apiBase = strings.TrimRight(base, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

func NewNotifier(token, chatID string, opts ...Option) *Notifier {
	n := &Notifier{
		apiBase: DefaultAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: requestTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

func (n *Notifier) Notify(ctx context.Context, report domain.Report) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatReport(report, n.now()))
	form.Set("parse_mode", "HTML")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %s", redact(err.Error(), n.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// FormatReport renders the HTML message body. Outcome messages are escaped.
func FormatReport(report domain.Report, now time.Time) string {
	var b strings.Builder

	b.WriteString("🛠️ <b>Xserver renewal report</b>\n\n")
	fmt.Fprintf(&b, "📊 Succeeded: %d/%d\n", report.SuccessCount(), len(report.Outcomes))
	fmt.Fprintf(&b, "📅 Run at: %s\n", now.Format("2006/01/02 15:04:05"))

	for _, outcome := range report.Outcomes {
		icon := "❌"
		if outcome.Success {
			icon = "✅"
		}

		b.WriteString("\n")
		fmt.Fprintf(&b, "Account: %s\n", html.EscapeString(outcome.Account))
		fmt.Fprintf(&b, "%s Result: %s\n", icon, html.EscapeString(outcome.Message))
	}

	return b.String()
}

// redact keeps the bot token out of transport errors, which embed the URL.
func redact(msg, token string) string {
	if token == "" {
		return msg
	}

	return strings.ReplaceAll(msg, token, "<token>")
}
