package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"orderflow/domain/book"
)

// ErrDownstreamUnavailable wraps any transport or server failure while
// publishing to the market state store. It is journaled and counted,
// never surfaced to the original submitter.
var ErrDownstreamUnavailable = errors.New("market state store unavailable")

// Target is where accepted orders and execution batches get published.
type Target interface {
	PublishOrder(ctx context.Context, o book.Order) error
	PublishExecutions(ctx context.Context, batch book.ExecutionBatch) error
}

// Client publishes events to the store's HTTP endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient points at the store's publish endpoint, e.g.
// "http://marketstore:9090/events".
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type orderEnvelope struct {
	Order book.Order `json:"order"`
}

func (c *Client) PublishOrder(ctx context.Context, o book.Order) error {
	return c.post(ctx, orderEnvelope{Order: o})
}

func (c *Client) PublishExecutions(ctx context.Context, batch book.ExecutionBatch) error {
	return c.post(ctx, batch)
}

func (c *Client) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrDownstreamUnavailable, resp.StatusCode)
	}
	return nil
}
