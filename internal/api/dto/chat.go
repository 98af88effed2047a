package dto

import "time"

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	ConversationID uint64 `json:"conversation_id"`
	Content        string `json:"content" binding:"required"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             string    `json:"id,omitempty"`
	ConversationID uint64    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationDTO 会话列表项响应，含嵌套消息明细
type ConversationDTO struct {
	ConversationID uint64       `json:"conversation_id"`
	PeerID         uint64       `json:"peer_id"` // 对手方ID
	Subject        string       `json:"subject"`
	LastMsgContent string       `json:"last_msg_content"`
	LastSenderID   uint64       `json:"last_sender_id"`
	LastMessageAt  time.Time    `json:"last_message_at"`
	UnreadCount    int64        `json:"unread_count"`
	Messages       []MessageDTO `json:"messages"`
}

// MarkAsReadReq 标记为已读请求
type MarkAsReadReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required"`
}

// HistoryReq 拉取会话消息历史
type HistoryReq struct {
	ConversationID uint64 `form:"conversation_id" binding:"required"`
}

// PushEventDTO 连接推送事件，INSERT 为新消息，UPDATE 为消息字段变更
type PushEventDTO struct {
	Type    string     `json:"type"` // INSERT / UPDATE
	Message MessageDTO `json:"message"`
}
