package widget

import (
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
)

// 服务端成功响应的业务码
const codeOk = 200

// envelope 服务端统一响应壳，Data 延迟解码
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// RemoteStore 基于 HTTP API 的 Store 实现
type RemoteStore struct {
	http *resty.Client
}

func NewRemoteStore(baseURL, token string) *RemoteStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")
	return &RemoteStore{http: client}
}

// LoadConversations 拉取全部会话（含嵌套消息）
func (s *RemoteStore) LoadConversations(ctx context.Context) ([]Conversation, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		Get("/api/chat/conversations")
	if err != nil {
		return nil, errors.Wrap(err, "load conversations")
	}

	var list []dto.ConversationDTO
	if err := decodeEnvelope(resp, &list); err != nil {
		return nil, err
	}

	out := make([]Conversation, 0, len(list))
	for _, c := range list {
		out = append(out, Conversation{
			ID:           c.ConversationID,
			PeerID:       c.PeerID,
			Subject:      c.Subject,
			Preview:      c.LastMsgContent,
			LastSenderID: c.LastSenderID,
			UpdatedAt:    c.LastMessageAt,
			UnreadCount:  c.UnreadCount,
			Messages:     fromMessageDTOs(c.Messages),
		})
	}
	return out, nil
}

// LoadMessages 拉取单个会话的消息（升序）
func (s *RemoteStore) LoadMessages(ctx context.Context, conversationID uint64) ([]Message, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("conversation_id", strconv.FormatUint(conversationID, 10)).
		Get("/api/chat/history")
	if err != nil {
		return nil, errors.Wrap(err, "load messages")
	}

	var list []dto.MessageDTO
	if err := decodeEnvelope(resp, &list); err != nil {
		return nil, err
	}
	return fromMessageDTOs(list), nil
}

// InsertMessage 写入消息，conversationID 为 0 时服务端惰性建会话
func (s *RemoteStore) InsertMessage(ctx context.Context, conversationID uint64, content string) (*Message, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(dto.SendMessageReq{ConversationID: conversationID, Content: content}).
		Post("/api/chat/send")
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}

	var created dto.MessageDTO
	if err := decodeEnvelope(resp, &created); err != nil {
		return nil, err
	}
	msg := fromMessageDTO(created)
	return &msg, nil
}

// MarkConversationRead 将会话内非本人消息置为已读
func (s *RemoteStore) MarkConversationRead(ctx context.Context, conversationID uint64) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(dto.MarkAsReadReq{ConversationID: conversationID}).
		Post("/api/chat/read")
	if err != nil {
		return errors.Wrap(err, "mark conversation read")
	}
	return decodeEnvelope(resp, nil)
}

func decodeEnvelope(resp *resty.Response, out interface{}) error {
	if resp.IsError() {
		return fmt.Errorf("chat api http error [%d]", resp.StatusCode())
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return errors.Wrap(err, "decode response envelope")
	}
	if env.Code != codeOk {
		return fmt.Errorf("chat api error [%d] %s", env.Code, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "decode response data")
	}
	return nil
}

func fromMessageDTO(m dto.MessageDTO) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}

func fromMessageDTOs(list []dto.MessageDTO) []Message {
	out := make([]Message, 0, len(list))
	for _, m := range list {
		out = append(out, fromMessageDTO(m))
	}
	return out
}

const (
	wsWriteWait        = 10 * time.Second
	wsReconnectBackoff = 3 * time.Second
)

// WSFeed 基于 Websocket 的 ChangeFeed 实现。
// 断线后自动退避重连，重连期间漏掉的事件靠下一次列表刷新补齐
type WSFeed struct {
	endpoint string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	stop   chan struct{}
}

// NewWSFeed 根据服务端 HTTP 地址推导 Websocket 订阅地址
func NewWSFeed(baseURL, token string) (*WSFeed, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/chat/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	return &WSFeed{endpoint: u.String(), stop: make(chan struct{})}, nil
}

// Subscribe 建立连接并在后台 goroutine 中持续派发事件
func (f *WSFeed) Subscribe(ctx context.Context, onEvent func(Event)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "dial change feed")
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return errors.New("change feed closed")
	}
	f.conn = conn
	f.mu.Unlock()

	go f.readLoop(conn, onEvent)
	return nil
}

func (f *WSFeed) readLoop(conn *websocket.Conn, onEvent func(Event)) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			closed := f.closed
			f.mu.Unlock()
			if closed {
				return
			}
			log.Warn("推送连接断开，准备重连", "err", err)
			f.reconnect(onEvent)
			return
		}

		var push dto.PushEventDTO
		if err := json.Unmarshal(payload, &push); err != nil {
			log.Warn("推送事件解码失败", "err", err)
			continue
		}
		if ev, ok := toEvent(push); ok {
			onEvent(ev)
		}
	}
}

func (f *WSFeed) reconnect(onEvent func(Event)) {
	for {
		select {
		case <-f.stop:
			return
		case <-time.After(wsReconnectBackoff):
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.endpoint, nil)
		if err != nil {
			log.Warn("推送重连失败", "err", err)
			continue
		}

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			_ = conn.Close()
			return
		}
		f.conn = conn
		f.mu.Unlock()

		log.Info("推送连接已恢复")
		go f.readLoop(conn, onEvent)
		return
	}
}

// Close 取消订阅，可重复调用
func (f *WSFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.stop)
	if f.conn != nil {
		_ = f.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		_ = f.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return f.conn.Close()
	}
	return nil
}

// toEvent 把服务端推送转成类型化事件，UPDATE 只保留已知字段
func toEvent(push dto.PushEventDTO) (Event, bool) {
	switch push.Type {
	case consts.PushTypeInsert:
		return Event{Kind: EventInsert, Message: fromMessageDTO(push.Message)}, true
	case consts.PushTypeUpdate:
		read := push.Message.Read
		content := push.Message.Content
		return Event{
			Kind: EventUpdate,
			Update: &MessageUpdate{
				ID:      push.Message.ID,
				Read:    &read,
				Content: &content,
			},
		}, true
	default:
		return Event{}, false
	}
}
