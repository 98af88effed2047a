package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeStore 内存版远端存储，记录各接口调用次数供断言
type fakeStore struct {
	mu            sync.Mutex
	selfID        uint64
	conversations []Conversation
	loadCalls     int
	insertCalls   int
	markReadCalls []uint64
	nextConvID    uint64
	nextMsgID     int
	loadErr       error
	loadMsgsErr   error
	insertErr     error
	insertDelay   time.Duration
	// onInsert 在写入成功后、响应返回前触发，用于模拟推送先于响应到达
	onInsert func(Message)
}

func (f *fakeStore) LoadConversations(_ context.Context) ([]Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]Conversation, len(f.conversations))
	for i, c := range f.conversations {
		msgs := make([]Message, len(c.Messages))
		copy(msgs, c.Messages)
		c.Messages = msgs
		out[i] = c
	}
	return out, nil
}

func (f *fakeStore) LoadMessages(_ context.Context, conversationID uint64) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadMsgsErr != nil {
		return nil, f.loadMsgsErr
	}
	for _, c := range f.conversations {
		if c.ID == conversationID {
			out := make([]Message, len(c.Messages))
			copy(out, c.Messages)
			return out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, conversationID uint64, content string) (*Message, error) {
	f.mu.Lock()
	f.insertCalls++
	delay := f.insertDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	f.mu.Lock()
	if f.insertErr != nil {
		err := f.insertErr
		f.mu.Unlock()
		return nil, err
	}
	if conversationID == 0 {
		f.nextConvID++
		conversationID = f.nextConvID
		f.conversations = append(f.conversations, Conversation{ID: conversationID, PeerID: 9})
	}
	f.nextMsgID++
	created := Message{
		ID:             fmt.Sprintf("srv-%d", f.nextMsgID),
		ConversationID: conversationID,
		SenderID:       f.selfID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	for i := range f.conversations {
		if f.conversations[i].ID == conversationID {
			f.conversations[i].Messages = append(f.conversations[i].Messages, created)
		}
	}
	hook := f.onInsert
	f.mu.Unlock()

	if hook != nil {
		hook(created)
	}
	return &created, nil
}

func (f *fakeStore) MarkConversationRead(_ context.Context, conversationID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, conversationID)
	for i := range f.conversations {
		if f.conversations[i].ID != conversationID {
			continue
		}
		for j := range f.conversations[i].Messages {
			if f.conversations[i].Messages[j].SenderID != f.selfID {
				f.conversations[i].Messages[j].Read = true
			}
		}
	}
	return nil
}

// fakeFeed 推送通道打桩，统计订阅与关闭次数
type fakeFeed struct {
	mu             sync.Mutex
	subscribeCalls int
	closeCalls     int
	onEvent        func(Event)
}

func (f *fakeFeed) Subscribe(_ context.Context, onEvent func(Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	f.onEvent = onEvent
	return nil
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeFeed) emit(ev Event) {
	f.mu.Lock()
	fn := f.onEvent
	f.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func testIdentity() *Identity {
	return &Identity{ID: 1, Email: "alice@example.com", Nickname: "Alice"}
}

func newTestReconciler(convs ...Conversation) (*Reconciler, *fakeStore, *fakeFeed) {
	store := &fakeStore{selfID: 1, conversations: convs, nextConvID: 100}
	feed := &fakeFeed{}
	return NewReconciler(store, feed), store, feed
}

func msg(id string, convID, senderID uint64, content string, read bool) Message {
	return Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		Read:           read,
		CreatedAt:      time.Now(),
	}
}

// 同一 ID 的插入事件被重复投递时，渲染列表中该消息只出现一次
func TestDuplicateInsertRenderedOnce(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{msg("m1", 10, 2, "hi", true)}}
	r, _, feed := newTestReconciler(conv)

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	dup := Event{Kind: EventInsert, Message: msg("m2", 10, 2, "again", false)}
	feed.emit(dup)
	feed.emit(dup)
	feed.emit(dup)

	count := 0
	for _, v := range r.Messages() {
		if v.ID == "m2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected message m2 rendered exactly once, got %d", count)
	}
}

// 打开会话后再拉取列表，对方消息应当已读，未读数归零
func TestOpenConversationMarksRead(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{
		msg("m1", 10, 2, "one", false),
		msg("m2", 10, 2, "two", false),
		msg("m3", 10, 1, "mine", false),
	}}
	r, store, _ := newTestReconciler(conv)

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := r.UnreadCount(); got != 2 {
		t.Fatalf("Expected 2 unread before open, got %d", got)
	}

	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	if len(store.markReadCalls) == 0 || store.markReadCalls[0] != 10 {
		t.Errorf("Expected mark-read call for conversation 10, got %v", store.markReadCalls)
	}

	r.LoadConversations()
	if got := r.UnreadCount(); got != 0 {
		t.Errorf("Expected 0 unread after open, got %d", got)
	}
}

// 同一身份重复 Initialize 不应建立第二个订阅
func TestInitializeIdempotent(t *testing.T) {
	r, _, feed := newTestReconciler()

	id := testIdentity()
	if err := r.Initialize(id); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.Initialize(id); err != nil {
		t.Fatalf("Second Initialize failed: %v", err)
	}

	if feed.subscribeCalls != 1 {
		t.Errorf("Expected exactly 1 subscribe call, got %d", feed.subscribeCalls)
	}
}

// 空白文本发送是无操作：不触发存储调用，也不追加消息
func TestSendEmptyMessageNoop(t *testing.T) {
	r, store, _ := newTestReconciler()
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := r.SendMessage(""); err != nil {
		t.Fatalf("SendMessage(\"\") returned error: %v", err)
	}
	if err := r.SendMessage("   "); err != nil {
		t.Fatalf("SendMessage(whitespace) returned error: %v", err)
	}

	if store.insertCalls != 0 {
		t.Errorf("Expected 0 insert calls, got %d", store.insertCalls)
	}
	if got := len(r.Messages()); got != 0 {
		t.Errorf("Expected empty message list, got %d entries", got)
	}
}

// 3 个会话混合已读标志，未读总数必须精确等于未读且非本人发送的消息数
func TestUnreadCounterFixture(t *testing.T) {
	convs := []Conversation{
		{ID: 10, PeerID: 2, Messages: []Message{
			msg("a1", 10, 2, "x", false),
			msg("a2", 10, 2, "y", true),
			msg("a3", 10, 1, "z", false), // 本人发送，不计
		}},
		{ID: 11, PeerID: 3, Messages: []Message{
			msg("b1", 11, 3, "x", false),
			msg("b2", 11, 3, "y", false),
		}},
		{ID: 12, PeerID: 4, Messages: []Message{
			msg("c1", 12, 4, "x", true),
		}},
	}
	r, _, _ := newTestReconciler(convs...)

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := r.UnreadCount(); got != 3 {
		t.Errorf("Expected unread count 3, got %d", got)
	}
}

// 无会话时首次发送：惰性建会话、插入引用其 ID，推送回显只渲染一次
func TestFirstSendCreatesConversation(t *testing.T) {
	r, store, feed := newTestReconciler()
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if r.HasConversation() {
		t.Fatal("Expected no conversation before first send")
	}

	if err := r.SendMessage("hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if !r.HasConversation() {
		t.Fatal("Expected conversation adopted after first send")
	}
	if store.insertCalls != 1 {
		t.Fatalf("Expected 1 insert call, got %d", store.insertCalls)
	}

	// 服务端回显
	store.mu.Lock()
	created := store.conversations[0].Messages[0]
	store.mu.Unlock()
	feed.emit(Event{Kind: EventInsert, Message: created})

	count := 0
	for _, v := range r.Messages() {
		if v.ID == created.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected sent message rendered exactly once, got %d", count)
	}
}

// 两条不同 ID 的插入事件背靠背到达，按到达顺序渲染
func TestTwoInsertsArrivalOrder(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2}
	r, _, feed := newTestReconciler(conv)
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	feed.emit(Event{Kind: EventInsert, Message: msg("m1", 10, 2, "first", false)})
	feed.emit(Event{Kind: EventInsert, Message: msg("m2", 10, 2, "second", false)})

	views := r.Messages()
	if len(views) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(views))
	}
	if views[0].ID != "m1" || views[1].ID != "m2" {
		t.Errorf("Expected order [m1 m2], got [%s %s]", views[0].ID, views[1].ID)
	}
}

// 未命中当前会话的更新事件：不崩溃、不改动消息列表，但仍刷新会话列表
func TestUpdateUnknownIDDropped(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{msg("m1", 10, 2, "hi", true)}}
	r, store, feed := newTestReconciler(conv)
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	store.mu.Lock()
	before := store.loadCalls
	store.mu.Unlock()

	read := true
	feed.emit(Event{Kind: EventUpdate, Update: &MessageUpdate{ID: "ghost", Read: &read}})

	store.mu.Lock()
	after := store.loadCalls
	store.mu.Unlock()
	if after != before+1 {
		t.Errorf("Expected conversation list reload after update, loadCalls %d -> %d", before, after)
	}

	views := r.Messages()
	if len(views) != 1 || views[0].ID != "m1" {
		t.Errorf("Expected message list unchanged, got %v", views)
	}
}

// 已读标志单调：更新事件不能把已读翻回未读
func TestUpdateReadMonotonic(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{msg("m1", 10, 1, "mine", true)}}
	r, _, feed := newTestReconciler(conv)
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	unread := false
	feed.emit(Event{Kind: EventUpdate, Update: &MessageUpdate{ID: "m1", Read: &unread}})

	r.mu.Lock()
	got := r.messages[0].Read
	r.mu.Unlock()
	if !got {
		t.Error("Expected read flag to stay true after a read=false update")
	}
}

// 发送等待超时：在途锁强制释放，占位消息标记失败，随后允许重试
func TestSendTimeoutForceUnlock(t *testing.T) {
	r, store, _ := newTestReconciler(Conversation{ID: 10, PeerID: 2})
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	r.SetSendTimeout(30 * time.Millisecond)
	store.mu.Lock()
	store.insertDelay = time.Second
	store.mu.Unlock()

	if err := r.SendMessage("slow"); err == nil {
		t.Fatal("Expected timeout error from SendMessage")
	}

	var failed bool
	for _, v := range r.Messages() {
		if v.StatusGlyph == "✗" {
			failed = true
		}
	}
	if !failed {
		t.Error("Expected provisional message marked failed after timeout")
	}

	// 锁已释放，重试可以进入存储层
	store.mu.Lock()
	store.insertDelay = 0
	store.mu.Unlock()
	if err := r.SendMessage("retry"); err != nil {
		t.Fatalf("Retry after timeout failed: %v", err)
	}
	if store.insertCalls != 2 {
		t.Errorf("Expected 2 insert calls after retry, got %d", store.insertCalls)
	}
}

// 推送回显先于插入响应到达：占位被回显顶替，响应到达后不产生第二条
func TestEchoBeforeInsertResponse(t *testing.T) {
	r, store, feed := newTestReconciler(Conversation{ID: 10, PeerID: 2})
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	store.mu.Lock()
	store.onInsert = func(m Message) {
		feed.emit(Event{Kind: EventInsert, Message: m})
	}
	store.mu.Unlock()

	if err := r.SendMessage("race"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	views := r.Messages()
	if len(views) != 1 {
		t.Fatalf("Expected exactly 1 rendered message, got %d", len(views))
	}
	if views[0].StatusGlyph == "…" {
		t.Error("Expected provisional reconciled, still shows sending glyph")
	}
}

// 正常发送路径：响应先对账占位，其后的回显按 ID 去重
func TestInsertResponseThenEcho(t *testing.T) {
	r, store, feed := newTestReconciler(Conversation{ID: 10, PeerID: 2})
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	if err := r.SendMessage("hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	views := r.Messages()
	if len(views) != 1 {
		t.Fatalf("Expected 1 message after send, got %d", len(views))
	}
	if views[0].StatusGlyph != "✓" {
		t.Errorf("Expected sent glyph, got %q", views[0].StatusGlyph)
	}

	store.mu.Lock()
	created := store.conversations[0].Messages[0]
	store.mu.Unlock()
	feed.emit(Event{Kind: EventInsert, Message: created})

	if got := len(r.Messages()); got != 1 {
		t.Errorf("Expected echo deduplicated, got %d messages", got)
	}
}

// Teardown：未订阅时调用安全；订阅后调用清空状态并关闭通道；之后允许重新初始化
func TestTeardownAndReinitialize(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{msg("m1", 10, 2, "hi", false)}}
	r, _, feed := newTestReconciler(conv)

	// 从未订阅时 Teardown 不应崩溃
	r.Teardown()
	if feed.closeCalls != 0 {
		t.Errorf("Expected no close call before subscribe, got %d", feed.closeCalls)
	}

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := r.UnreadCount(); got != 1 {
		t.Fatalf("Expected 1 unread, got %d", got)
	}

	r.Teardown()
	if feed.closeCalls != 1 {
		t.Errorf("Expected 1 close call, got %d", feed.closeCalls)
	}
	if got := r.UnreadCount(); got != 0 {
		t.Errorf("Expected unread cleared, got %d", got)
	}
	if r.HasConversation() || len(r.Messages()) != 0 {
		t.Error("Expected conversation state cleared after teardown")
	}

	// 注销后发送被拒绝
	if err := r.SendMessage("after"); err != ErrTornDown {
		t.Errorf("Expected ErrTornDown, got %v", err)
	}

	// 重新登录后允许再次订阅
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Re-initialize failed: %v", err)
	}
	if feed.subscribeCalls != 2 {
		t.Errorf("Expected 2 subscribe calls after re-init, got %d", feed.subscribeCalls)
	}
}

// 身份为 nil 时初始化：空态、无订阅
func TestInitializeWithoutIdentity(t *testing.T) {
	r, store, feed := newTestReconciler(Conversation{ID: 10, PeerID: 2})

	if err := r.Initialize(nil); err != nil {
		t.Fatalf("Initialize(nil) failed: %v", err)
	}
	if feed.subscribeCalls != 0 {
		t.Errorf("Expected no subscription without identity, got %d", feed.subscribeCalls)
	}
	if store.loadCalls != 0 {
		t.Errorf("Expected no store calls without identity, got %d", store.loadCalls)
	}
	if err := r.SendMessage("hi"); err != ErrNotSignedIn {
		t.Errorf("Expected ErrNotSignedIn, got %v", err)
	}
}

// 对方新消息在面板打开时到达：立即标记已读
func TestIncomingInsertWhileOpenMarksRead(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2}
	r, store, feed := newTestReconciler(conv)
	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}

	store.mu.Lock()
	store.markReadCalls = nil
	store.mu.Unlock()

	feed.emit(Event{Kind: EventInsert, Message: msg("m9", 10, 2, "ping", false)})

	store.mu.Lock()
	calls := append([]uint64(nil), store.markReadCalls...)
	store.mu.Unlock()
	if len(calls) != 1 || calls[0] != 10 {
		t.Errorf("Expected mark-read call for conversation 10, got %v", calls)
	}
}

// 注销与在途发送并发：发送完成后不得回填注销时已清空的缓存
func TestTeardownDuringInflightSend(t *testing.T) {
	r, store, _ := newTestReconciler()
	store.insertDelay = 80 * time.Millisecond

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.SendMessage("bye") }()

	time.Sleep(20 * time.Millisecond)
	r.Teardown()
	if err := <-done; err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if r.HasConversation() {
		t.Errorf("Expected no conversation after teardown, HasConversation() = true")
	}
	if got := len(r.Messages()); got != 0 {
		t.Errorf("Expected empty message cache after teardown, got %d messages", got)
	}
	if got := r.UnreadCount(); got != 0 {
		t.Errorf("Expected 0 unread after teardown, got %d", got)
	}
}

// 拉取会话列表失败：旧列表与未读数保持不变，等下一次触发自然重试
func TestLoadConversationsErrorKeepsState(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{msg("m1", 10, 2, "hi", false)}}
	r, store, _ := newTestReconciler(conv)

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := r.UnreadCount(); got != 1 {
		t.Fatalf("Expected 1 unread before failure, got %d", got)
	}

	store.mu.Lock()
	store.loadErr = errors.New("store offline")
	store.mu.Unlock()

	r.LoadConversations()

	if got := len(r.Conversations()); got != 1 {
		t.Errorf("Expected prior conversation list kept, got %d conversations", got)
	}
	if got := r.UnreadCount(); got != 1 {
		t.Errorf("Expected prior unread count kept, got %d", got)
	}
}

// 拉取会话消息失败：已打开会话的缓存内容保持不变
func TestOpenConversationErrorKeepsState(t *testing.T) {
	conv := Conversation{ID: 10, PeerID: 2, Messages: []Message{msg("m1", 10, 2, "hi", true)}}
	r, store, _ := newTestReconciler(conv)

	if err := r.Initialize(testIdentity()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("OpenConversation failed: %v", err)
	}
	if got := len(r.Messages()); got != 1 {
		t.Fatalf("Expected 1 cached message before failure, got %d", got)
	}

	store.mu.Lock()
	store.loadMsgsErr = errors.New("store offline")
	store.mu.Unlock()

	if err := r.OpenConversation(10); err != nil {
		t.Fatalf("Expected fail-soft open, got %v", err)
	}
	views := r.Messages()
	if len(views) != 1 || views[0].ID != "m1" {
		t.Errorf("Expected cached message m1 untouched, got %+v", views)
	}
}
