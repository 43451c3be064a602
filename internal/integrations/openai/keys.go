package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrAPIKey marks failures to obtain the API key, as opposed to failures of
// the completion call itself.
var ErrAPIKey = errors.New("openai: api key unavailable")

// KeySource yields the bearer token used for upstream calls.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key known at startup, typically read from the environment.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", errors.New("openai: API token is empty")
	}
	return key, nil
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape accepted for keys stored in SSM.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStoreKey fetches the key from a parameter store on first use and
// reuses it for the lifetime of the process. A failed lookup is not cached.
type ParamStoreKey struct {
	getter Getter
	name   string

	mu  sync.Mutex
	key string
}

func NewParamStoreKey(g Getter, name string) (*ParamStoreKey, error) {
	if g == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("openai: token parameter name is empty")
	}
	return &ParamStoreKey{getter: g, name: name}, nil
}

func (p *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != "" {
		return p.key, nil
	}
	key, err := fetchAPIKeyFromParamStore(ctx, p.getter, p.name)
	if err != nil {
		return "", err
	}
	p.key = key
	return key, nil
}

// fetchAPIKeyFromParamStore accepts either a bare token or {"token":"..."}.
func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", errors.New("openai: API token is empty")
		}
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("openai: API token is empty")
	}
	return tp.Token, nil
}
