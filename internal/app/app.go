// Package app wires configuration into the chat service shared by the Lambda
// and local server binaries.
package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chat-relay/internal/config"
	"chat-relay/internal/integrations/openai"
	"chat-relay/internal/integrations/paramstore"
	"chat-relay/internal/usecase"
)

// NewChatService builds the upstream client and the use case. An explicit
// API key wins; otherwise the key is read lazily from SSM.
func NewChatService(ctx context.Context, cfg config.Config) (*usecase.ChatService, error) {
	keys, err := keySource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llm, err := openai.NewClient(keys,
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithTimeout(cfg.UpstreamTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create openai client: %w", err)
	}

	svc, err := usecase.NewChatService(llm, cfg.Model, cfg.MaxMessageLen)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}
	return svc, nil
}

func keySource(ctx context.Context, cfg config.Config) (openai.KeySource, error) {
	if cfg.APIKey != "" {
		return openai.StaticKey(cfg.APIKey), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	keys, err := openai.NewParamStoreKey(ps, cfg.APIKeyParam)
	if err != nil {
		return nil, fmt.Errorf("app: create SSM key source: %w", err)
	}
	return keys, nil
}
