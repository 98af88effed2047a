package widget

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotSignedIn  = errors.New("请先登录")
	ErrSendInFlight = errors.New("上一条消息发送中")
	ErrTornDown     = errors.New("会话已注销")
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultLoadTimeout = 5 * time.Second
)

// Reconciler 会话缓存与实时对账器。
// 维护单用户视角的会话列表与当前打开会话的消息，
// 通过显式拉取与推送订阅两条通道对齐远端存储，按消息 ID 去重
type Reconciler struct {
	store       Store
	feed        ChangeFeed
	sendTimeout time.Duration
	loadTimeout time.Duration

	mu            sync.Mutex
	state         lifecycleState
	identity      *Identity
	conversations []Conversation
	currentID     uint64
	messages      []Message
	unread        int64
	sending       bool
	pendingID     string
	open          bool
	notify        func()
}

func NewReconciler(store Store, feed ChangeFeed) *Reconciler {
	return &Reconciler{
		store:       store,
		feed:        feed,
		sendTimeout: defaultSendTimeout,
		loadTimeout: defaultLoadTimeout,
	}
}

// SetNotify 注册状态变化回调，展示层借此重绘
func (r *Reconciler) SetNotify(fn func()) {
	r.mu.Lock()
	r.notify = fn
	r.mu.Unlock()
}

// SetSendTimeout 调整发送等待上限，超时后在途锁强制释放
func (r *Reconciler) SetSendTimeout(d time.Duration) {
	r.mu.Lock()
	r.sendTimeout = d
	r.mu.Unlock()
}

// Initialize 以给定身份启动。身份为 nil 时呈现未登录空态且不建立订阅；
// 已处于订阅态时重复调用不会产生第二个订阅
func (r *Reconciler) Initialize(identity *Identity) error {
	r.mu.Lock()
	if identity == nil {
		r.clearLocked()
		r.state = stateUninitialized
		r.mu.Unlock()
		r.fireNotify()
		return nil
	}

	r.identity = identity
	if r.state == stateSubscribed {
		r.mu.Unlock()
		return nil
	}
	// 订阅标志在首个挂起点之前置位，封死同拍内二次订阅的窗口
	r.state = stateSubscribed
	r.mu.Unlock()

	r.LoadConversations()

	if err := r.feed.Subscribe(context.Background(), r.OnRemoteChange); err != nil {
		r.mu.Lock()
		r.state = stateUninitialized
		r.mu.Unlock()
		log.Error("建立推送订阅失败", "error", err)
		return err
	}
	return nil
}

// LoadConversations 整体替换会话列表并重算未读总数。
// 拉取失败只记日志并保留旧状态，下一次用户触发的加载会自然重试
func (r *Reconciler) LoadConversations() {
	r.mu.Lock()
	me := r.identity
	timeout := r.loadTimeout
	r.mu.Unlock()
	if me == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	convs, err := r.store.LoadConversations(ctx)
	if err != nil {
		log.Warn("拉取会话列表失败", "error", err)
		return
	}

	var total int64
	for i := range convs {
		var n int64
		for _, m := range convs[i].Messages {
			if !m.Read && m.SenderID != me.ID {
				n++
			}
		}
		convs[i].UnreadCount = n
		total += n
	}

	r.mu.Lock()
	// 等待期间可能已注销，注销后的缓存必须保持清空
	if r.identity == nil {
		r.mu.Unlock()
		return
	}
	r.conversations = convs
	r.unread = total
	r.mu.Unlock()
	r.fireNotify()
}

// OpenLatest 打开缓存中最近更新的会话，没有会话时面板保持空态
func (r *Reconciler) OpenLatest() error {
	return r.OpenConversation(0)
}

// OpenConversation 加载指定会话的消息（升序），随手把对方的未读消息标记已读，
// 再刷新会话列表以更新角标。查看即已读，没有单独的确认步骤
func (r *Reconciler) OpenConversation(conversationID uint64) error {
	r.mu.Lock()
	if r.state == stateTornDown {
		r.mu.Unlock()
		return ErrTornDown
	}
	me := r.identity
	if me == nil {
		r.mu.Unlock()
		return ErrNotSignedIn
	}
	if conversationID == 0 && len(r.conversations) > 0 {
		conversationID = r.conversations[0].ID
	}
	r.open = true
	timeout := r.loadTimeout
	r.mu.Unlock()

	if conversationID == 0 {
		r.fireNotify()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	msgs, err := r.store.LoadMessages(ctx, conversationID)
	if err != nil {
		log.Warn("拉取会话消息失败", "conversation_id", conversationID, "error", err)
		return nil
	}

	r.mu.Lock()
	if r.state != stateSubscribed {
		r.mu.Unlock()
		return nil
	}
	r.currentID = conversationID
	r.messages = msgs
	// 本地先翻已读，远端状态由 markRead 对齐
	for i := range r.messages {
		if r.messages[i].SenderID != me.ID {
			r.messages[i].Read = true
		}
	}
	r.mu.Unlock()

	r.markRead(conversationID)
	r.LoadConversations()
	r.fireNotify()
	return nil
}

// SendMessage 发送一条消息。空白文本不产生任何存储调用；
// 无会话时由远端惰性建会话并在响应里带回新会话 ID。
// 发出即追加乐观占位消息（status=sending），
// 之后由插入响应或推送回显按 ID 对账顶替
func (r *Reconciler) SendMessage(text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil
	}

	r.mu.Lock()
	if r.state == stateTornDown {
		r.mu.Unlock()
		return ErrTornDown
	}
	me := r.identity
	if me == nil {
		r.mu.Unlock()
		return ErrNotSignedIn
	}
	if r.sending {
		r.mu.Unlock()
		return ErrSendInFlight
	}
	// 在首个挂起点之前同步上锁，两次快速触发只放行第一次
	r.sending = true
	local := Message{
		ID:             "local-" + uuid.NewString(),
		ConversationID: r.currentID,
		SenderID:       me.ID,
		SenderName:     me.Nickname,
		Content:        content,
		CreatedAt:      time.Now(),
		Status:         StatusSending,
	}
	r.pendingID = local.ID
	r.messages = append(r.messages, local)
	convID := r.currentID
	timeout := r.sendTimeout
	r.mu.Unlock()
	r.fireNotify()

	// 等待有界，超时按失败处理并释放在途锁
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	created, err := r.store.InsertMessage(ctx, convID, content)

	r.mu.Lock()
	// 等待期间若已注销，结果作废，缓存由注销路径负责清空
	if r.state != stateSubscribed {
		r.mu.Unlock()
		return err
	}
	r.sending = false
	if err != nil {
		r.failPendingLocked()
		r.mu.Unlock()
		r.fireNotify()
		log.Warn("消息发送失败", "error", err)
		return err
	}
	if r.currentID == 0 {
		r.currentID = created.ConversationID
	}
	r.resolvePendingLocked(created)
	r.mu.Unlock()
	r.fireNotify()

	r.LoadConversations()
	return nil
}

// OnRemoteChange 推送订阅的回调入口。
// Insert 按 ID 去重后追加（自己发出的回显会顶替乐观占位），
// Update 对命中的缓存消息做类型化合并，未命中则丢弃；
// 两种事件之后都刷新会话列表让未读角标保持新鲜
func (r *Reconciler) OnRemoteChange(ev Event) {
	r.mu.Lock()
	if r.state != stateSubscribed || r.identity == nil {
		r.mu.Unlock()
		return
	}
	me := *r.identity

	var markReadID uint64
	switch ev.Kind {
	case EventInsert:
		msg := ev.Message
		if r.currentID != 0 && msg.ConversationID == r.currentID {
			switch {
			case r.containsLocked(msg.ID):
				// 重复投递，按 ID 去重后不做任何事
			case msg.SenderID == me.ID && r.pendingID != "":
				r.replacePendingLocked(msg)
			default:
				r.messages = append(r.messages, msg)
			}
			if msg.SenderID != me.ID && r.open {
				markReadID = r.currentID
				for i := range r.messages {
					if r.messages[i].ID == msg.ID {
						r.messages[i].Read = true
					}
				}
			}
		}
	case EventUpdate:
		if ev.Update != nil {
			r.mergeUpdateLocked(ev.Update)
		}
	}
	r.mu.Unlock()
	r.fireNotify()

	if markReadID != 0 {
		r.markRead(markReadID)
	}
	r.LoadConversations()
}

// Teardown 退出登录时调用：取消订阅并清空全部缓存。
// 从未订阅时调用同样安全，之后允许重新 Initialize
func (r *Reconciler) Teardown() {
	r.mu.Lock()
	subscribed := r.state == stateSubscribed
	r.state = stateTornDown
	r.clearLocked()
	r.mu.Unlock()

	if subscribed {
		if err := r.feed.Close(); err != nil {
			log.Warn("关闭推送订阅失败", "error", err)
		}
	}
	r.fireNotify()
}

// ClosePanel 收起聊天面板，当前会话的消息从内存丢弃（远端不受影响）
func (r *Reconciler) ClosePanel() {
	r.mu.Lock()
	r.open = false
	r.currentID = 0
	r.messages = nil
	r.mu.Unlock()
	r.fireNotify()
}

// UnreadCount 全部会话中未读且非本人发送的消息总数
func (r *Reconciler) UnreadCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

// HasConversation 当前是否有已加载的会话
func (r *Reconciler) HasConversation() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentID != 0
}

// Conversations 会话列表快照，按最近更新倒序
func (r *Reconciler) Conversations() []Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Conversation, len(r.conversations))
	copy(out, r.conversations)
	return out
}

// Messages 当前会话的可渲染视图模型，按到达顺序
func (r *Reconciler) Messages() []MessageView {
	r.mu.Lock()
	defer r.mu.Unlock()

	var meID uint64
	if r.identity != nil {
		meID = r.identity.ID
	}

	out := make([]MessageView, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, MessageView{
			ID:          m.ID,
			Own:         m.SenderID == meID,
			Body:        m.Content,
			DisplayTime: m.CreatedAt.Local().Format("15:04"),
			StatusGlyph: statusGlyph(m.Status),
		})
	}
	return out
}

func statusGlyph(s MessageStatus) string {
	switch s {
	case StatusSending:
		return "…"
	case StatusFailed:
		return "✗"
	case StatusSent:
		return "✓"
	default:
		return ""
	}
}

// markRead 对远端的已读更新是发后不管的：失败只记日志，
// 未读数最终由列表刷新兜底
func (r *Reconciler) markRead(conversationID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
	defer cancel()
	if err := r.store.MarkConversationRead(ctx, conversationID); err != nil {
		log.Warn("标记已读失败", "conversation_id", conversationID, "error", err)
	}
}

func (r *Reconciler) containsLocked(id string) bool {
	for i := range r.messages {
		if r.messages[i].ID == id {
			return true
		}
	}
	return false
}

// replacePendingLocked 用服务端回显顶替乐观占位消息
func (r *Reconciler) replacePendingLocked(msg Message) {
	for i := range r.messages {
		if r.messages[i].ID == r.pendingID {
			msg.Status = StatusSent
			r.messages[i] = msg
			r.pendingID = ""
			return
		}
	}
	r.pendingID = ""
	r.messages = append(r.messages, msg)
}

// resolvePendingLocked 用插入响应对账乐观占位。
// 推送回显先到时服务端 ID 已在列表里，只需移除残留占位
func (r *Reconciler) resolvePendingLocked(created *Message) {
	if r.pendingID == "" {
		return
	}
	if r.containsLocked(created.ID) {
		for i := range r.messages {
			if r.messages[i].ID == r.pendingID {
				r.messages = append(r.messages[:i], r.messages[i+1:]...)
				break
			}
		}
		r.pendingID = ""
		return
	}
	r.replacePendingLocked(*created)
}

func (r *Reconciler) failPendingLocked() {
	for i := range r.messages {
		if r.messages[i].ID == r.pendingID {
			r.messages[i].Status = StatusFailed
			break
		}
	}
	r.pendingID = ""
}

// mergeUpdateLocked 把类型化的部分更新合并进缓存副本。
// 已读标志单调，只允许从未读翻到已读
func (r *Reconciler) mergeUpdateLocked(u *MessageUpdate) {
	for i := range r.messages {
		if r.messages[i].ID != u.ID {
			continue
		}
		if u.Read != nil && *u.Read {
			r.messages[i].Read = true
		}
		if u.Content != nil {
			r.messages[i].Content = *u.Content
		}
		return
	}
	// 未加载会话里的消息更新直接丢弃
}

func (r *Reconciler) clearLocked() {
	r.identity = nil
	r.conversations = nil
	r.messages = nil
	r.currentID = 0
	r.unread = 0
	r.sending = false
	r.pendingID = ""
	r.open = false
}

func (r *Reconciler) fireNotify() {
	r.mu.Lock()
	fn := r.notify
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}
