// Package emails sends transactional mail through the Brevo API.
package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest is the Brevo v3 transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoContact   `json:"sender"`
	To          []BrevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	ReplyTo     *BrevoContact  `json:"replyTo,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient implements coordinator.Notifier. With no APIKey every send is a no-op.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	// AppURL is linked from every message.
	AppURL string
	// Endpoint overrides the Brevo URL; tests point it at httptest.
	Endpoint string
	Client   *http.Client
}

var _ coordinator.Notifier = (*BrevoClient)(nil)

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@carbonmarket.app"
}

func (c *BrevoClient) appURL() string {
	if c.AppURL != "" {
		return c.AppURL
	}
	return "http://localhost:3000"
}

func (c *BrevoClient) send(ctx context.Context, to BrevoContact, subject, tag, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoContact{Email: c.from(), Name: brandName},
		To:          []BrevoContact{to},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoContact{Email: supportEmail, Name: brandName + " Support"},
		Tags:        []string{tag},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = brevoAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send %s: status %d", tag, resp.StatusCode)
	}
	return nil
}

// SendWelcome greets a newly registered company.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, name string) error {
	return c.send(ctx, BrevoContact{Email: toEmail, Name: name},
		"Welcome to "+brandName, "welcome", EmailLayout(welcomeContent(greetingName(name), c.appURL())))
}

func (c *BrevoClient) SendAccountUpdated(ctx context.Context, toEmail, name string) error {
	return c.send(ctx, BrevoContact{Email: toEmail, Name: name},
		"Your "+brandName+" profile was updated", "account_updated", EmailLayout(accountUpdatedContent(greetingName(name), c.appURL())))
}

// SendPurchaseReceipt confirms a completed order to the buyer.
func (c *BrevoClient) SendPurchaseReceipt(ctx context.Context, toEmail, name string, o domain.Order) error {
	return c.send(ctx, BrevoContact{Email: toEmail, Name: name},
		fmt.Sprintf("Receipt: %d tonnes of CO2 offset", o.Amount), "purchase_receipt",
		EmailLayout(receiptContent(greetingName(name), o, c.appURL())))
}

func greetingName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func welcomeContent(name, appURL string) string {
	return fmt.Sprintf(`
    <h1>Welcome aboard, %s!</h1>
    <p>Your company account on <strong>%s</strong> is ready. Buyers can browse verified carbon credit projects and sellers can publish new credits straight from the dashboard.</p>
    <center><a href="%s" class="cm-button">Open the Marketplace</a></center>
    <p class="muted">If you did not create this account, please contact our support team.</p>
`, EscapeHTML(name), brandName, appURL)
}

func accountUpdatedContent(name, appURL string) string {
	return fmt.Sprintf(`
    <h1>Profile updated</h1>
    <p>Hi %s,</p>
    <p>The company details on your <strong>%s</strong> account were just changed.</p>
    <center><a href="%s" class="cm-button">Review Your Profile</a></center>
    <p><strong>Not you?</strong> Contact <a href="mailto:%s">%s</a> right away.</p>
`, EscapeHTML(name), brandName, appURL, supportEmail, supportEmail)
}

func receiptContent(name string, o domain.Order, appURL string) string {
	return fmt.Sprintf(`
    <h1>Thank you for your purchase</h1>
    <p>Hi %s, your order is complete and the impact has been logged.</p>
    <table class="receipt">
      <tr><td>Order</td><td>%s</td></tr>
      <tr><td>Credits</td><td>%d tCO2e</td></tr>
      <tr><td>Total</td><td>$%.2f</td></tr>
      <tr><td>Date</td><td>%s</td></tr>
    </table>
    <center><a href="%s" class="cm-button">View Your Orders</a></center>
`, EscapeHTML(name), EscapeHTML(o.ID), o.Amount, o.TotalPrice, o.CreatedAt.UTC().Format("2 Jan 2006"), appURL)
}
