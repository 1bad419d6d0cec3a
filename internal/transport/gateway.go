package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// maxErrorBodyBytes caps how much of a failure body is read for
// classification and logging.
const maxErrorBodyBytes = 8 << 10

// GatewayClient talks to the chat-platform gateway over HTTP. It implements
// Transport for message delivery and the role operations the admission and
// scoring steps need.
type GatewayClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewGatewayClient creates a client for the gateway at baseURL. A nil
// httpClient falls back to a client with a 10s timeout.
func NewGatewayClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *GatewayClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GatewayClient{
		baseURL: baseURL,
		token:   token,
		client:  httpClient,
		logger:  logger,
	}
}

// CreateDirectChannel opens a private channel to the user.
func (g *GatewayClient) CreateDirectChannel(ctx context.Context, userID string) (Channel, error) {
	payload := map[string]string{"user_id": userID}

	var ch Channel
	if err := g.postJSON(ctx, "/channels/direct", payload, &ch); err != nil {
		return Channel{}, err
	}
	if ch.ID == "" {
		return Channel{}, fmt.Errorf("gateway returned empty channel id for user %s", userID)
	}
	return ch, nil
}

// Send delivers one message to a channel.
func (g *GatewayClient) Send(ctx context.Context, ch Channel, content string) error {
	payload := map[string]string{"channel_id": ch.ID, "content": content}
	return g.postJSON(ctx, "/messages", payload, nil)
}

// Roles returns the user's current role names, lowercased by the gateway.
func (g *GatewayClient) Roles(ctx context.Context, userID string) ([]string, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/roles", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Roles []string `json:"roles"`
	}
	if err := g.do(req, &out); err != nil {
		return nil, err
	}
	return out.Roles, nil
}

// AddRole grants a named role to the user.
func (g *GatewayClient) AddRole(ctx context.Context, userID, role string) error {
	req, err := g.newRequest(ctx, http.MethodPut, g.rolePath(userID, role), nil)
	if err != nil {
		return err
	}
	return g.do(req, nil)
}

// RemoveRole revokes a named role from the user.
func (g *GatewayClient) RemoveRole(ctx context.Context, userID, role string) error {
	req, err := g.newRequest(ctx, http.MethodDelete, g.rolePath(userID, role), nil)
	if err != nil {
		return err
	}
	return g.do(req, nil)
}

func (g *GatewayClient) rolePath(userID, role string) string {
	return "/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(role)
}

func (g *GatewayClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode gateway request: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return g.do(req, out)
}

func (g *GatewayClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	return req, nil
}

// do executes the request and translates non-2xx responses into classified
// DeliveryErrors.
func (g *GatewayClient) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		// Network-level failure; classified transient by KindOf
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		body := string(raw)
		kind := Classify(resp.StatusCode, body)

		g.logger.Debug("gateway request failed",
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("kind", kind.String()))

		return &DeliveryError{Kind: kind, StatusCode: resp.StatusCode, Body: body}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
