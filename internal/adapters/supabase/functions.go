package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/reelapps/reelhunter/internal/ports"
)

var _ ports.FunctionInvoker = (*Functions)(nil)

// Functions invokes edge functions under /functions/v1.
type Functions struct {
	client *Client
	tokens TokenSource
}

// NewFunctions creates an invoker that authenticates with tokens.
func (c *Client) NewFunctions(tokens TokenSource) *Functions {
	return &Functions{client: c, tokens: tokens}
}

// Invoke posts body as JSON to the named function and returns the raw reply.
func (f *Functions) Invoke(ctx context.Context, name string, body any) ([]byte, error) {
	if name == "" {
		return nil, errors.New("function name is required")
	}
	var token string
	if f.tokens != nil {
		token = f.tokens.AccessToken()
	}
	fc := f.client.functionsClient(token)
	out, err := detach(ctx, func() (string, error) {
		return fc.Invoke(url.PathEscape(name), body)
	})
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("invoke %s: %w", name, err)
		}
		return nil, fmt.Errorf("invoke %s: %w: %w", name, ports.ErrFunctionFailed, err)
	}
	if msg, failed := functionError(out); failed {
		return nil, fmt.Errorf("invoke %s: %w: %s", name, ports.ErrFunctionFailed, msg)
	}
	return []byte(out), nil
}

// functionError reports replies shaped like {"error": "..."}, which functions send with
// an error status.
func functionError(reply string) (string, bool) {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &body); err != nil || len(body) != 1 {
		return "", false
	}
	raw, ok := body["error"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		msg = string(raw)
	}
	return msg, true
}
