package service

import (
	"context"
	"testing"
)

// 在线状态查询失败时按在线处理，不能误触发自动回复
func TestOperatorOnlineFailOpen(t *testing.T) {
	svc := NewAssistantService()
	if !svc.OperatorOnline(context.Background()) {
		t.Errorf("Expected online when presence state is unknown")
	}
}
