package mongo

import (
	"time"
)

// Message MongoDB 消息明细模型
type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`               // MongoDB 自动生成的 ObjectID
	ConversationID uint64    `bson:"conversation_id" json:"conversationId"` // 关联 MySQL 的会话 ID
	SenderID       uint64    `bson:"sender_id" json:"senderId"`             // 发送者 UID
	SenderName     string    `bson:"sender_name" json:"senderName"`         // 发送者展示名
	Content        string    `bson:"content" json:"content"`                // 文本内容
	Read           bool      `bson:"read" json:"read"`                      // 接收方是否已读，单向翻转 false -> true
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`           // 消息发送时间
}
