package datahub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/config"
)

const messageIDHeader = "MessageId"

type httpTransport struct {
	baseURL string
	cfg     config.HubConfig
	client  *http.Client
	log     *zap.Logger
}

func newHTTPTransport(cfg config.HubConfig, log *zap.Logger) *httpTransport {
	return &httpTransport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log.Named("datahub.http"),
	}
}

func (t *httpTransport) Peek(ctx context.Context) (*InboundMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/peek", nil)
	if err != nil {
		return nil, err
	}
	t.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode == http.StatusOK:
		id := strings.TrimSpace(resp.Header.Get(messageIDHeader))
		if id == "" {
			return nil, fmt.Errorf("peek: response carries no %s header", messageIDHeader)
		}
		return &InboundMessage{MessageID: id, Payload: body}, nil
	default:
		return nil, fmt.Errorf("peek: hub returned %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

func (t *httpTransport) Dequeue(ctx context.Context, messageID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.baseURL+"/v1/dequeue/"+messageID, nil)
	if err != nil {
		return err
	}
	t.authorize(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("dequeue %s: %w", messageID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("dequeue %s: hub returned %d", messageID, resp.StatusCode)
	}
	return nil
}

func (t *httpTransport) Send(ctx context.Context, msg OutboundMessage) (SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/messages", bytes.NewReader(msg.Payload))
	if err != nil {
		return SendResult{}, err
	}
	t.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(messageIDHeader, msg.MessageID)
	req.Header.Set("DocumentType", msg.DocumentType)
	if msg.BusinessProcess != "" {
		req.Header.Set("BusinessProcess", msg.BusinessProcess)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// Network failures are retryable, not verdicts.
		return SendResult{Status: SendTransientFailure, Response: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SendResult{Status: SendTransientFailure, Response: err.Error()}, nil
	}

	result := SendResult{Response: truncate(body, 2000)}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Status = SendAccepted
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		result.Status = SendRejected
	default:
		result.Status = SendTransientFailure
	}
	return result, nil
}

func (t *httpTransport) authorize(req *http.Request) {
	req.SetBasicAuth(t.cfg.ClientID, t.cfg.ClientSecret)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
