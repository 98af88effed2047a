package llm

import (
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
)

// AutoReply 客服离线时生成一条自动回复
func AutoReply(ctx context.Context, question string) (string, error) {
	if llmClient == nil {
		return "", errors.New("llm client is not initialized")
	}

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(autoReplyPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(question),
			},
		},
	}

	log.Info("正在请求AI大模型")
	resp, err := llmClient.GenerateContent(ctx, messages,
		llms.WithModel(config.Cfg.LLM.Model),
		llms.WithTemperature(0.7),
	)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty llm response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
