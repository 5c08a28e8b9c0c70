package assemblyai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	TokenBaseURL  = "https://streaming.assemblyai.com/v3/token"
	StreamBaseURL = "wss://streaming.assemblyai.com/v3/ws?sample_rate=16000&formatted_finals=true"

	// TokenTTL is the lifetime requested for streaming tokens. One token is
	// minted per relay and never reused.
	TokenTTL = 60 * time.Second
)

// Conn is the slice of *websocket.Conn the relay needs. Tests substitute a
// scripted socket.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Client struct {
	APIKey     string
	HTTPClient *http.Client
	TokenURL   string
	StreamURL  string

	// Dial opens the transcription socket. Defaults to a gorilla websocket
	// dial; tests inject a fake.
	Dial func(ctx context.Context, url string) (Conn, error)

	logger *log.Logger
}

func NewClient(apiKey string, logger *log.Logger) *Client {
	return &Client{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		TokenURL:   TokenBaseURL,
		StreamURL:  StreamBaseURL,
		Dial:       dialWebSocket,
		logger:     logger,
	}
}

func dialWebSocket(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// IssueToken mints a short-lived streaming credential. The caller embeds it
// in the socket URL; it is not an account API key and expires after ttl.
func (c *Client) IssueToken(ctx context.Context, ttl time.Duration) (string, error) {
	url := fmt.Sprintf("%s?expires_in_seconds=%d", c.TokenURL, int(ttl.Seconds()))

	req, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("assemblyai token: unexpected status code: %d, response body: %s",
			resp.StatusCode, string(body))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", fmt.Errorf("assemblyai token: empty token in response")
	}
	return result.Token, nil
}
