package widget

import "context"

// Store 远端会话存储的读写边界。实现方负责鉴权与传输，
// Reconciler 只关心请求/响应语义，所有调用都是尽力而为
type Store interface {
	// LoadConversations 拉取当前身份参与的全部会话（含嵌套消息），按最近更新倒序
	LoadConversations(ctx context.Context) ([]Conversation, error)
	// LoadMessages 拉取单个会话的消息，按创建时间升序
	LoadMessages(ctx context.Context, conversationID uint64) ([]Message, error)
	// InsertMessage 写入一条消息。conversationID 为 0 时由服务端惰性建会话，
	// 返回的消息携带服务端分配的 ID 与最终会话 ID
	InsertMessage(ctx context.Context, conversationID uint64, content string) (*Message, error)
	// MarkConversationRead 将会话内所有非本人消息置为已读
	MarkConversationRead(ctx context.Context, conversationID uint64) error
}

// EventKind 推送事件类别
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
)

// Event 推送通道下发的单条变更。Insert 携带完整消息行，
// Update 只携带类型化的部分更新
type Event struct {
	Kind    EventKind
	Message Message
	Update  *MessageUpdate
}

// ChangeFeed 按身份隔离的消息变更推送通道。断线重连由实现方负责，
// Reconciler 不做任何重连逻辑
type ChangeFeed interface {
	// Subscribe 建立订阅并在独立 goroutine 中回调 onEvent，重复投递由上层按 ID 去重
	Subscribe(ctx context.Context, onEvent func(Event)) error
	// Close 取消订阅，未订阅时调用应当无害
	Close() error
}
