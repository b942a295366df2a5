package engine

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"funnel_backend/internal/automation/domain"

	"github.com/google/uuid"
)

const (
	headerSignature = "X-Webhook-Signature"
	headerEvent     = "X-Webhook-Event"
)

type webhookPayload struct {
	Event     string         `json:"event"`
	Rule      webhookRule    `json:"rule"`
	Deal      webhookDeal    `json:"deal"`
	Contact   webhookContact `json:"contact"`
	Timestamp time.Time      `json:"timestamp"`
}

type webhookRule struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type webhookDeal struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Value     float64   `json:"value"`
	FunnelID  uuid.UUID `json:"funnelId"`
	Funnel    string    `json:"funnel"`
	StageID   uuid.UUID `json:"stageId"`
	Stage     string    `json:"stage"`
	ContactID uuid.UUID `json:"contactId"`
}

type webhookContact struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
	Email string    `json:"email"`
}

func (e *Engine) webhookPayload(r run) webhookPayload {
	data := r.templateData()
	return webhookPayload{
		Event: string(r.rule.TriggerType),
		Rule:  webhookRule{ID: r.rule.ID, Name: r.rule.Name},
		Deal: webhookDeal{
			ID:        r.deal.ID,
			Title:     r.deal.Title,
			Value:     r.deal.Value,
			FunnelID:  r.deal.FunnelID,
			Funnel:    data.FunnelName,
			StageID:   r.deal.StageID,
			Stage:     data.StageName,
			ContactID: r.deal.ContactID,
		},
		Contact: webhookContact{
			ID:    r.contact.ID,
			Name:  r.contact.Name,
			Phone: data.ContactPhone,
			Email: r.contact.Email,
		},
		Timestamp: e.now().UTC(),
	}
}

// webhook delivers the event to an external URL. Any non-2xx status, network
// error or timeout is a failure of this rule only.
func (e *Engine) webhook(ctx context.Context, r run, c domain.WebhookRequestConfig) outcome {
	body, err := json.Marshal(e.webhookPayload(r))
	if err != nil {
		return failedf("encode webhook payload: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.WebhookTimeout)
	defer cancel()

	method := c.HTTPMethod()
	var reader io.Reader
	if method != http.MethodGet {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL, reader)
	if err != nil {
		return failedf("build webhook request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerEvent, string(r.rule.TriggerType))
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if c.Secret != "" && reader != nil {
		req.Header.Set(headerSignature, signPayload(body, c.Secret))
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return failedf("webhook request failed: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failedf("webhook returned status %d", resp.StatusCode)
	}
	return done()
}

func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
