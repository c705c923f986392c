package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultKernelName = "python3"

// GatewayClient submits commands to a Jupyter kernel gateway. Kernel discovery
// and startup go over the gateway's REST API; the submission itself runs over
// the kernel's WebSocket channel, multiplexing shell and iopub traffic on one
// connection.
type GatewayClient struct {
	// BaseURL is the gateway root, e.g. http://localhost:8888.
	BaseURL string

	// Token, if set, authenticates REST and WebSocket requests using the
	// gateway's token scheme.
	Token string

	// KernelName selects the kernelspec when a kernel must be started.
	// Defaults to "python3".
	KernelName string

	// HTTPClient is used for REST calls. Defaults to a client with a 30s
	// timeout.
	HTTPClient *http.Client

	// Dialer is used to open the kernel channel. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Log receives debug-level protocol tracing. May be nil.
	Log *slog.Logger

	kernelID string
	session  string
}

// NewGatewayClient returns a GatewayClient for the given gateway root URL.
func NewGatewayClient(baseURL, token string, log *slog.Logger) *GatewayClient {
	return &GatewayClient{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   token,
		Log:     log,
		session: uuid.NewString(),
	}
}

type kernelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnsureKernel resolves the kernel to submit against: the first running kernel
// when one exists, otherwise a freshly started one. The resolved ID is cached
// for subsequent submissions.
func (c *GatewayClient) EnsureKernel(ctx context.Context) (string, error) {
	if c.kernelID != "" {
		return c.kernelID, nil
	}

	var running []kernelInfo
	if err := c.rest(ctx, http.MethodGet, "/api/kernels", nil, &running); err != nil {
		return "", fmt.Errorf("list kernels: %w", err)
	}

	if len(running) > 0 {
		c.kernelID = running[0].ID
		if c.Log != nil {
			c.Log.Debug("using running kernel", "kernel_id", c.kernelID, "name", running[0].Name)
		}
		return c.kernelID, nil
	}

	name := c.KernelName
	if name == "" {
		name = defaultKernelName
	}

	var started kernelInfo
	body := map[string]string{"name": name}
	if err := c.rest(ctx, http.MethodPost, "/api/kernels", body, &started); err != nil {
		return "", fmt.Errorf("start kernel: %w", err)
	}
	if started.ID == "" {
		return "", fmt.Errorf("gateway returned empty kernel id")
	}

	c.kernelID = started.ID
	if c.Log != nil {
		c.Log.Debug("started kernel", "kernel_id", c.kernelID, "name", name)
	}
	return c.kernelID, nil
}

// Submit sends one execute_request and relays iopub messages parented to it
// until the kernel reports the execution idle. Messages arriving for other
// submissions on a shared kernel are dropped.
func (c *GatewayClient) Submit(ctx context.Context, code string, onMessage func(Message)) error {
	kernelID, err := c.EnsureKernel(ctx)
	if err != nil {
		return err
	}

	conn, err := c.dialChannels(ctx, kernelID)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read loop when the caller's context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
			_ = conn.Close()
		case <-done:
		}
	}()

	msgID := uuid.NewString()
	request := map[string]any{
		"header": map[string]any{
			"msg_id":   msgID,
			"msg_type": "execute_request",
			"username": "nbpublish",
			"session":  c.session,
			"version":  "5.3",
		},
		"parent_header": map[string]any{},
		"metadata":      map[string]any{},
		"content": map[string]any{
			"code":             code,
			"silent":           false,
			"store_history":    false,
			"user_expressions": map[string]any{},
			"allow_stdin":      false,
			"stop_on_error":    false,
		},
		"channel": "shell",
	}

	if err := conn.WriteJSON(request); err != nil {
		return fmt.Errorf("send execute_request: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read kernel channel: %w", err)
		}

		env, err := Decode(raw)
		if err != nil {
			if c.Log != nil {
				c.Log.Debug("dropping undecodable kernel frame", "error", err)
			}
			continue
		}
		if env.ParentID != msgID || env.Msg == nil {
			continue
		}

		if status, ok := env.Msg.(Status); ok {
			if status.State == "idle" {
				return nil
			}
			continue
		}

		onMessage(env.Msg)
	}
}

func (c *GatewayClient) rest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "token "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func (c *GatewayClient) dialChannels(ctx context.Context, kernelID string) (*websocket.Conn, error) {
	wsURL, err := channelsURL(c.BaseURL, kernelID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "token "+c.Token)
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial kernel channel: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial kernel channel: %w", err)
	}
	return conn, nil
}

func channelsURL(baseURL, kernelID string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/kernels/" + kernelID + "/channels"
	return parsed.String(), nil
}
