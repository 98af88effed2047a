package service

import (
	"context"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/llm"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
)

// AssistantService 运营人员离线时的自动回复
type AssistantService interface {
	OperatorOnline(ctx context.Context) bool
	Reply(ctx context.Context, question string) (string, error)
}

type assistantServiceImpl struct{}

func NewAssistantService() AssistantService {
	return &assistantServiceImpl{}
}

// OperatorOnline 窗口内还有任意一名运营有心跳即视为在线
func (s *assistantServiceImpl) OperatorOnline(ctx context.Context) bool {
	n, err := redis.ZCountSince(ctx, consts.OperatorPresenceKey, consts.OperatorPresenceWindow)
	if err != nil {
		// 状态未知时按在线处理，避免误触发自动回复
		return true
	}
	return n > 0
}

func (s *assistantServiceImpl) Reply(ctx context.Context, question string) (string, error) {
	return llm.AutoReply(ctx, question)
}
