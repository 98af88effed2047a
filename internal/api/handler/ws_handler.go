package handler

import (
	"context"
	log "log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/response"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/security"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	chatService service.ChatService
}

func NewWsHandler(chatService service.ChatService) *WsHandler {
	return &WsHandler{chatService: chatService}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	// 订阅用户个人频道
	channel := consts.IMUserKey + strconv.FormatUint(userID, 10)
	pubsub := redis.Subscribe(context.Background(), channel)
	defer func() {
		_ = pubsub.Close()
	}()

	// 运营人员在线时维护在线标记，控制自动回复开关
	isOperator := hasRole(claims.Roles, consts.RoleOperator)
	if isOperator {
		s.setPresence(userID)
	}

	log.Info("用户 WS 连接已建立", "user_id", userID, "channel", channel)

	stopChan := make(chan struct{})

	// 读循环：监听客户端主动断开
	go func() {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				close(stopChan)
				return
			}
		}
	}()

	presenceTicker := time.NewTicker(consts.OperatorPresenceWindow / 2)
	defer presenceTicker.Stop()

	// 写循环：监听 Redis 并推送至客户端
	redisCh := pubsub.Channel()
	for {
		select {
		case msg := <-redisCh:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload))
			if err != nil {
				log.Error("WS 推送失败", "user_id", userID, "err", err)
				s.clearPresence(isOperator, userID)
				return
			}
		case <-presenceTicker.C:
			if isOperator {
				s.setPresence(userID)
			}
		case <-stopChan:
			log.Info("用户 WS 连接已断开", "user_id", userID)
			s.clearPresence(isOperator, userID)
			return
		}
	}
}

// setPresence 按成员记录心跳，多名运营同时在线互不覆盖
func (s *WsHandler) setPresence(userID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redis.ZAddNow(ctx, consts.OperatorPresenceKey, userID, consts.OperatorPresenceWindow); err != nil {
		log.Warn("在线标记写入失败", "user_id", userID, "err", err)
	}
}

// clearPresence 只摘除自己的成员，其余在线运营不受影响
func (s *WsHandler) clearPresence(isOperator bool, userID uint64) {
	if !isOperator {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redis.ZRem(ctx, consts.OperatorPresenceKey, userID); err != nil {
		log.Warn("在线标记清除失败", "user_id", userID, "err", err)
	}
}

func hasRole(roles []string, target string) bool {
	for _, r := range roles {
		if r == target {
			return true
		}
	}
	return false
}
