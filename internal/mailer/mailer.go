package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// Client sends reminder emails through the Postmark HTTP API. Each send
// is a single best-effort attempt; retry policy belongs to the caller.
type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint, mainly for tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true only when both the server token and the From
// address are set. A token without a sender would pass Postmark auth and
// then have every send rejected, so half-configured counts as off.
func (c *Client) Configured() bool {
	return c.serverToken != "" && c.fromEmail != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendReminder emails a deadline reminder for the given company.
func (c *Client) SendReminder(to, companyName string, deadline time.Time) error {
	if !c.Configured() {
		return fmt.Errorf("mailer not configured: missing server token or from address")
	}

	subject := fmt.Sprintf("Reminder: Application Deadline for %s", companyName)
	when := deadline.Format("Mon, 02 Jan 2006 15:04 MST")
	textBody := fmt.Sprintf(
		"Hi there,\n\nThis is a reminder that your application deadline for %s is approaching.\n\nDeadline: %s\n\nGood luck!\nThe TrackerPro Team",
		companyName, when,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi there,</p><p>This is a reminder that your application deadline for <strong>%s</strong> is approaching.</p><p><strong>Deadline:</strong> %s</p><p>Good luck!</p><p>The TrackerPro Team</p>`,
		companyName, when,
	)

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
