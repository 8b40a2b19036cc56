package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relay передаёт сообщение внешнему сервису доставки (POST {baseURL}/api/notify).
type Relay struct {
	baseURL    string
	httpClient *http.Client
}

func NewRelay(baseURL string) *Relay {
	return &Relay{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *Relay) Name() string { return "relay" }

type relayResponse struct {
	ID string `json:"id"`
}

func (p *Relay) Send(ctx context.Context, m *Message) (string, error) {
	body, err := json.Marshal(m.Wire())
	if err != nil {
		return "", fmt.Errorf("relay encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/notify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay notify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("relay notify: %d", resp.StatusCode)
	}
	// Сервис может вернуть свой id; иначе генерируем.
	var out relayResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(raw) > 0 && json.Unmarshal(raw, &out) == nil && out.ID != "" {
		return out.ID, nil
	}
	return uuid.NewString(), nil
}
