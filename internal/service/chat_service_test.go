package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/mongo"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
)

const testOperatorID = uint64(99)

func TestMain(m *testing.M) {
	config.Cfg = &config.Config{
		Server: config.ServerConfig{OperatorID: testOperatorID},
	}
	// 推送走真实 Publish，指向不可达地址即可：失败只会被记日志
	redis.Rdb = goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	os.Exit(m.Run())
}

// fakeConversationRepo 内存版会话仓储
type fakeConversationRepo struct {
	mu     sync.Mutex
	nextID uint64
	convs  map[uint64]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: make(map[uint64]*model.Conversation)}
}

func (f *fakeConversationRepo) CreateConversation(_ context.Context, conv *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	conv.ID = f.nextID
	cp := *conv
	f.convs[conv.ID] = &cp
	return nil
}

func (f *fakeConversationRepo) GetConversation(_ context.Context, convID uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[convID]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeConversationRepo) GetConversationByCustomer(_ context.Context, customerID uint64, operatorID uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.convs {
		if conv.CustomerID == customerID && conv.OperatorID == operatorID {
			cp := *conv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConversationRepo) ListByParticipant(_ context.Context, userID uint64) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Conversation, 0)
	for _, conv := range f.convs {
		if conv.CustomerID == userID || conv.OperatorID == userID {
			cp := *conv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) TouchPreview(_ context.Context, convID uint64, lastMsg string, senderID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv, ok := f.convs[convID]; ok {
		conv.LastMsgContent = lastMsg
		conv.LastSenderID = senderID
		conv.LastMessageAt = time.Now()
	}
	return nil
}

// fakeMessageRepo 内存版消息仓储
type fakeMessageRepo struct {
	mu        sync.Mutex
	nextID    int
	msgs      []*mongo.Message
	saveCalls int
}

func (f *fakeMessageRepo) SaveMessage(_ context.Context, msg *mongo.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	f.nextID++
	msg.ID = fmt.Sprintf("m%d", f.nextID)
	cp := *msg
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, convID uint64) ([]*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*mongo.Message, 0)
	for _, m := range f.msgs {
		if m.ConversationID == convID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListByConversations(_ context.Context, convIDs []uint64) ([]*mongo.Message, error) {
	set := make(map[uint64]struct{}, len(convIDs))
	for _, id := range convIDs {
		set[id] = struct{}{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*mongo.Message, 0)
	for _, m := range f.msgs {
		if _, ok := set[m.ConversationID]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, convID uint64, readerID uint64) ([]*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flipped := make([]*mongo.Message, 0)
	for _, m := range f.msgs {
		if m.ConversationID == convID && m.SenderID != readerID && !m.Read {
			m.Read = true
			cp := *m
			flipped = append(flipped, &cp)
		}
	}
	return flipped, nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, convIDs []uint64, readerID uint64) (int64, error) {
	set := make(map[uint64]struct{}, len(convIDs))
	for _, id := range convIDs {
		set[id] = struct{}{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.msgs {
		if _, ok := set[m.ConversationID]; ok && m.SenderID != readerID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) findBySenderName(name string) *mongo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.SenderName == name {
			cp := *m
			return &cp
		}
	}
	return nil
}

// fakeAssistant 自动回复打桩
type fakeAssistant struct {
	online bool
	reply  string
}

func (f *fakeAssistant) OperatorOnline(_ context.Context) bool { return f.online }

func (f *fakeAssistant) Reply(_ context.Context, _ string) (string, error) {
	return f.reply, nil
}

func newTestChatService(online bool) (ChatService, *fakeConversationRepo, *fakeMessageRepo) {
	convRepo := newFakeConversationRepo()
	msgRepo := &fakeMessageRepo{}
	svc := NewChatService(convRepo, msgRepo, &fakeAssistant{online: online, reply: "您好，客服暂时不在"})
	return svc, convRepo, msgRepo
}

// 空白消息不触发任何存储调用
func TestSendMessageEmpty(t *testing.T) {
	svc, _, msgRepo := newTestChatService(true)
	defer svc.Close()

	_, err := svc.SendMessage(context.Background(), 5, "客户甲", &dto.SendMessageReq{Content: "   "})
	if err != ErrMessageEmpty {
		t.Fatalf("Expected ErrMessageEmpty, got %v", err)
	}
	if msgRepo.saveCalls != 0 {
		t.Errorf("Expected 0 save calls, got %d", msgRepo.saveCalls)
	}
}

// 首次发言惰性建会话，消息引用新会话 ID
func TestSendMessageLazyCreateConversation(t *testing.T) {
	svc, convRepo, _ := newTestChatService(true)
	defer svc.Close()

	res, err := svc.SendMessage(context.Background(), 5, "客户甲", &dto.SendMessageReq{Content: "你们做企业官网吗"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if res.ConversationID == 0 {
		t.Fatal("Expected conversation adopted on first send")
	}

	conv, err := convRepo.GetConversation(context.Background(), res.ConversationID)
	if err != nil || conv == nil {
		t.Fatalf("Expected conversation created, got %v / %v", conv, err)
	}
	if conv.CustomerID != 5 || conv.OperatorID != testOperatorID {
		t.Errorf("Expected participants (5, %d), got (%d, %d)", testOperatorID, conv.CustomerID, conv.OperatorID)
	}
	if conv.LastMsgContent != "你们做企业官网吗" {
		t.Errorf("Expected preview updated, got %q", conv.LastMsgContent)
	}

	// 重复发送不再建第二个会话
	res2, err := svc.SendMessage(context.Background(), 5, "客户甲", &dto.SendMessageReq{Content: "在吗"})
	if err != nil {
		t.Fatalf("Second SendMessage failed: %v", err)
	}
	if res2.ConversationID != res.ConversationID {
		t.Errorf("Expected same conversation, got %d and %d", res.ConversationID, res2.ConversationID)
	}
}

// 非会话参与者发言被拒绝
func TestSendMessageForbidden(t *testing.T) {
	svc, convRepo, _ := newTestChatService(true)
	defer svc.Close()

	conv := &model.Conversation{CustomerID: 5, OperatorID: testOperatorID}
	if err := convRepo.CreateConversation(context.Background(), conv); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SendMessage(context.Background(), 7, "路人", &dto.SendMessageReq{ConversationID: conv.ID, Content: "hi"})
	if err != ErrConversationForbidden {
		t.Errorf("Expected ErrConversationForbidden, got %v", err)
	}
}

// 标记已读只翻转对方的未读消息，且重复调用无副作用
func TestMarkAsReadMonotonic(t *testing.T) {
	svc, convRepo, msgRepo := newTestChatService(true)
	defer svc.Close()

	conv := &model.Conversation{CustomerID: 5, OperatorID: testOperatorID}
	if err := convRepo.CreateConversation(context.Background(), conv); err != nil {
		t.Fatal(err)
	}
	seed := []*mongo.Message{
		{ConversationID: conv.ID, SenderID: testOperatorID, Content: "a"},
		{ConversationID: conv.ID, SenderID: testOperatorID, Content: "b"},
		{ConversationID: conv.ID, SenderID: 5, Content: "c"},
	}
	for _, m := range seed {
		if err := msgRepo.SaveMessage(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.MarkAsRead(context.Background(), 5, conv.ID); err != nil {
		t.Fatalf("MarkAsRead failed: %v", err)
	}

	n, err := svc.GetTotalUnread(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetTotalUnread failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 unread after mark-read, got %d", n)
	}

	// 本人消息不受影响：对运营方而言客户那条仍是未读
	opUnread, err := svc.GetTotalUnread(context.Background(), testOperatorID)
	if err != nil {
		t.Fatal(err)
	}
	if opUnread != 1 {
		t.Errorf("Expected operator to still have 1 unread, got %d", opUnread)
	}

	// 幂等：再次标记不报错
	if err := svc.MarkAsRead(context.Background(), 5, conv.ID); err != nil {
		t.Errorf("Second MarkAsRead failed: %v", err)
	}
}

// 会话列表带嵌套消息与未读数
func TestGetConversationList(t *testing.T) {
	svc, convRepo, msgRepo := newTestChatService(true)
	defer svc.Close()

	conv := &model.Conversation{CustomerID: 5, OperatorID: testOperatorID, Subject: "网站建设咨询"}
	if err := convRepo.CreateConversation(context.Background(), conv); err != nil {
		t.Fatal(err)
	}
	seed := []*mongo.Message{
		{ConversationID: conv.ID, SenderID: testOperatorID, Content: "a"},
		{ConversationID: conv.ID, SenderID: 5, Content: "b", Read: true},
		{ConversationID: conv.ID, SenderID: testOperatorID, Content: "c", Read: true},
	}
	for _, m := range seed {
		if err := msgRepo.SaveMessage(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.GetConversationList(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetConversationList failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 conversation, got %d", len(list))
	}
	if list[0].UnreadCount != 1 {
		t.Errorf("Expected 1 unread, got %d", list[0].UnreadCount)
	}
	if len(list[0].Messages) != 3 {
		t.Errorf("Expected 3 nested messages, got %d", len(list[0].Messages))
	}
	if list[0].PeerID != testOperatorID {
		t.Errorf("Expected peer %d, got %d", testOperatorID, list[0].PeerID)
	}
}

// 历史消息：不存在的会话与非参与者分别拒绝
func TestGetChatHistoryGuards(t *testing.T) {
	svc, convRepo, _ := newTestChatService(true)
	defer svc.Close()

	if _, err := svc.GetChatHistory(context.Background(), 5, 404); err != ErrConversation {
		t.Errorf("Expected ErrConversation, got %v", err)
	}

	conv := &model.Conversation{CustomerID: 5, OperatorID: testOperatorID}
	if err := convRepo.CreateConversation(context.Background(), conv); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetChatHistory(context.Background(), 7, conv.ID); err != ErrConversationForbidden {
		t.Errorf("Expected ErrConversationForbidden, got %v", err)
	}
}

// 运营人员离线时客户发言触发自动回复
func TestAutoReplyWhenOperatorOffline(t *testing.T) {
	svc, _, msgRepo := newTestChatService(false)
	defer svc.Close()

	_, err := svc.SendMessage(context.Background(), 5, "客户甲", &dto.SendMessageReq{Content: "报价多少"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	// 自动回复在后台 goroutine 落库，轮询等待
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reply := msgRepo.findBySenderName("智能助手"); reply != nil {
			if reply.SenderID != testOperatorID {
				t.Errorf("Expected assistant reply under operator identity %d, got %d", testOperatorID, reply.SenderID)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Expected assistant reply to be persisted")
}

// 运营人员在线时不触发自动回复
func TestNoAutoReplyWhenOperatorOnline(t *testing.T) {
	svc, _, msgRepo := newTestChatService(true)
	defer svc.Close()

	_, err := svc.SendMessage(context.Background(), 5, "客户甲", &dto.SendMessageReq{Content: "在吗"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if reply := msgRepo.findBySenderName("智能助手"); reply != nil {
		t.Error("Expected no assistant reply while operator online")
	}
}
