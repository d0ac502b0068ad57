package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sudo-init-do/servicehub/internal/config"
)

const defaultPlunkURL = "https://api.useplunk.com/v1/send"

type PlunkSender struct {
	apiKey  string
	from    string
	apiURL  string
	replyTo string
	client  *http.Client
}

func NewPlunkSender(cfg config.MailConfig) (*PlunkSender, error) {
	if cfg.PlunkAPIKey == "" {
		return nil, fmt.Errorf("plunk not configured: set PLUNK_API_KEY")
	}
	url := cfg.PlunkAPIURL
	if url == "" {
		url = defaultPlunkURL
	}
	return &PlunkSender{
		apiKey:  cfg.PlunkAPIKey,
		from:    cfg.PlunkFrom,
		apiURL:  url,
		replyTo: cfg.ReplyTo,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type plunkSendBody struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func (s *PlunkSender) Send(ctx context.Context, env EmailEnvelope) error {
	b, err := json.Marshal(plunkSendBody{
		To:      env.To,
		Subject: env.Subject,
		Body:    env.Body,
		From:    s.from,
		Reply:   s.replyTo,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(msg) > 0 {
			return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, msg)
		}
		return fmt.Errorf("plunk send failed: status=%d", resp.StatusCode)
	}
	return nil
}
