package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMissingCredential ключ для согласования сессии не задан
var ErrMissingCredential = errors.New("realtime credential is missing")

// maxAnswerSize ограничение размера SDP answer
const maxAnswerSize = 1 << 20

// HTTPNegotiator отправляет SDP offer на удалённый сервис согласования
type HTTPNegotiator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPNegotiator создает клиента согласования. client == nil означает клиент с таймаутом timeout.
func NewHTTPNegotiator(endpoint, apiKey, model string, client *http.Client, timeout time.Duration) *HTTPNegotiator {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPNegotiator{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   client,
	}
}

// Negotiate отправляет offer (application/sdp, bearer-токен) и возвращает answer.
// Любой ответ вне 2xx считается ошибкой.
func (n *HTTPNegotiator) Negotiate(ctx context.Context, offer string) (string, error) {
	if strings.TrimSpace(n.apiKey) == "" {
		return "", ErrMissingCredential
	}

	target, err := url.Parse(n.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid negotiation endpoint: %w", err)
	}
	if n.model != "" {
		q := target.Query()
		q.Set("model", n.model)
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(offer))
	if err != nil {
		return "", fmt.Errorf("build negotiation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sdp")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("negotiation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerSize))
	if err != nil {
		return "", fmt.Errorf("read negotiation answer: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return "", fmt.Errorf("negotiation failed with status %d: %s", resp.StatusCode, snippet)
	}

	answer := string(body)
	if strings.TrimSpace(answer) == "" {
		return "", errors.New("negotiation returned empty answer")
	}
	return answer, nil
}
