package widget

import "time"

// Identity 当前登录身份的只读快照，会话期间由 Reconciler 持有
type Identity struct {
	ID       uint64
	Email    string
	Nickname string
}

// MessageStatus 消息的本地投递状态，仅存在于客户端内存，绝不落库
type MessageStatus string

const (
	StatusSending MessageStatus = "sending" // 乐观插入，等待服务端确认
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// Message 缓存中的消息记录。Read 为服务端权威字段，Status 为本地注解，两者互不覆盖
type Message struct {
	ID             string
	ConversationID uint64
	SenderID       uint64
	SenderName     string
	Content        string
	Read           bool
	CreatedAt      time.Time
	Status         MessageStatus
}

// Conversation 会话列表项，含嵌套的按时间升序消息
type Conversation struct {
	ID           uint64
	PeerID       uint64
	Subject      string
	Preview      string
	LastSenderID uint64
	UpdatedAt    time.Time
	UnreadCount  int64
	Messages     []Message
}

// MessageUpdate 推送通道下发的部分更新，字段指针为 nil 表示未携带。
// 用类型化结构代替动态合并，通道里出现的未知字段在解码阶段即被丢弃
type MessageUpdate struct {
	ID      string
	Read    *bool
	Content *string
}

// MessageView 面向展示层的消息视图模型
type MessageView struct {
	ID          string
	Own         bool
	Body        string
	DisplayTime string
	StatusGlyph string
}

// 生命周期状态，替代散落的布尔标志，双重订阅与注销后发送可直接判定
type lifecycleState int

const (
	stateUninitialized lifecycleState = iota
	stateSubscribed
	stateTornDown
)
