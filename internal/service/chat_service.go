package service

import (
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/mongo"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/repository"

	"github.com/goccy/go-json"
)

const previewMaxLen = 120

// ChatService 客服会话服务接口定义
type ChatService interface {
	SendMessage(ctx context.Context, senderID uint64, senderName string, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetOrCreateConversation(ctx context.Context, customerID uint64) (*model.Conversation, error)
	GetConversationList(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error)
	GetChatHistory(ctx context.Context, userID uint64, convID uint64) ([]*dto.MessageDTO, error)
	MarkAsRead(ctx context.Context, userID uint64, convID uint64) error
	GetTotalUnread(ctx context.Context, userID uint64) (int64, error)
	Close()
}

type chatServiceImpl struct {
	convRepo    repository.ConversationRepo
	messageRepo mongo.MessageRepo
	assistant   AssistantService
	retryChan   chan *mongo.Message
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

// NewChatService 构造函数：初始化服务并启动异步补偿工作池
func NewChatService(convRepo repository.ConversationRepo, messageRepo mongo.MessageRepo, assistant AssistantService) ChatService {
	s := &chatServiceImpl{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		assistant:   assistant,
		retryChan:   make(chan *mongo.Message, 2048),
		stopChan:    make(chan struct{}),
	}

	workerCount := 5
	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.retryWorker()
	}

	return s
}

// SendMessage 发送消息并推送给会话双方
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID uint64, senderName string, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrMessageEmpty
	}

	var conv *model.Conversation
	var err error
	if req.ConversationID == 0 {
		// 客户首次发言时惰性建会话
		conv, err = s.GetOrCreateConversation(ctx, senderID)
		if err != nil {
			return nil, err
		}
	} else {
		conv, err = s.convRepo.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversation
		}
		if conv.CustomerID != senderID && conv.OperatorID != senderID {
			return nil, ErrConversationForbidden
		}
	}

	msgModel := &mongo.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        req.Content,
		Read:           false,
		CreatedAt:      time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.messageRepo.SaveMessage(writeCtx, msgModel); err != nil {
		select {
		case s.retryChan <- msgModel:
		default:
		}
		return nil, UnExpectedError
	}

	if err := s.convRepo.TouchPreview(ctx, conv.ID, truncatePreview(req.Content), senderID); err != nil {
		log.Error("更新会话预览失败", "conv_id", conv.ID, "err", err)
	}

	// 推送给会话双方的用户频道，发送方依赖回显事件落地消息
	s.publishEvent(context.Background(), consts.PushTypeInsert, msgModel, conv.CustomerID, conv.OperatorID)

	// 客户发言且运营人员离线时触发自动回复
	if senderID == conv.CustomerID {
		go s.maybeAutoReply(conv, req.Content)
	}

	return toMessageDTO(msgModel), nil
}

// GetOrCreateConversation 获取客户会话，不存在则挂到默认运营人员下创建
func (s *chatServiceImpl) GetOrCreateConversation(ctx context.Context, customerID uint64) (*model.Conversation, error) {
	operatorID := config.Cfg.Server.OperatorID
	conv, err := s.convRepo.GetConversationByCustomer(ctx, customerID, operatorID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	newConv := &model.Conversation{
		CustomerID:    customerID,
		OperatorID:    operatorID,
		Subject:       "网站建设咨询",
		LastMessageAt: time.Now(),
	}
	if err := s.convRepo.CreateConversation(ctx, newConv); err != nil {
		return nil, err
	}
	return newConv, nil
}

// GetConversationList 获取会话列表，包含嵌套消息明细与未读数
func (s *chatServiceImpl) GetConversationList(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []*dto.ConversationDTO{}, nil
	}

	convIDs := make([]uint64, 0, len(convs))
	for _, c := range convs {
		convIDs = append(convIDs, c.ID)
	}
	messages, err := s.messageRepo.ListByConversations(ctx, convIDs)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint64][]dto.MessageDTO, len(convs))
	unread := make(map[uint64]int64, len(convs))
	for _, m := range messages {
		grouped[m.ConversationID] = append(grouped[m.ConversationID], *toMessageDTO(m))
		if m.SenderID != userID && !m.Read {
			unread[m.ConversationID]++
		}
	}

	res := make([]*dto.ConversationDTO, 0, len(convs))
	for _, c := range convs {
		peerID := c.OperatorID
		if userID == c.OperatorID {
			peerID = c.CustomerID
		}
		msgs := grouped[c.ID]
		if msgs == nil {
			msgs = []dto.MessageDTO{}
		}
		res = append(res, &dto.ConversationDTO{
			ConversationID: c.ID,
			PeerID:         peerID,
			Subject:        c.Subject,
			LastMsgContent: c.LastMsgContent,
			LastSenderID:   c.LastSenderID,
			LastMessageAt:  c.LastMessageAt,
			UnreadCount:    unread[c.ID],
			Messages:       msgs,
		})
	}
	return res, nil
}

// GetChatHistory 按发送时间升序拉取会话内全部消息
func (s *chatServiceImpl) GetChatHistory(ctx context.Context, userID uint64, convID uint64) ([]*dto.MessageDTO, error) {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversation
	}
	if conv.CustomerID != userID && conv.OperatorID != userID {
		return nil, ErrConversationForbidden
	}

	models, err := s.messageRepo.ListByConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, toMessageDTO(m))
	}
	return res, nil
}

// MarkAsRead 把会话内对方消息置为已读，并把每条翻转以 UPDATE 事件推给对方
func (s *chatServiceImpl) MarkAsRead(ctx context.Context, userID uint64, convID uint64) error {
	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversation
	}
	if conv.CustomerID != userID && conv.OperatorID != userID {
		return ErrConversationForbidden
	}

	flipped, err := s.messageRepo.MarkConversationRead(ctx, convID, userID)
	if err != nil {
		return err
	}
	if len(flipped) == 0 {
		return nil
	}

	peerID := conv.OperatorID
	if userID == conv.OperatorID {
		peerID = conv.CustomerID
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, m := range flipped {
			s.publishEvent(pubCtx, consts.PushTypeUpdate, m, peerID)
		}
	}()

	return nil
}

func (s *chatServiceImpl) GetTotalUnread(ctx context.Context, userID uint64) (int64, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return 0, err
	}
	convIDs := make([]uint64, 0, len(convs))
	for _, c := range convs {
		convIDs = append(convIDs, c.ID)
	}
	return s.messageRepo.CountUnread(ctx, convIDs, userID)
}

func (s *chatServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("ChatService shut down gracefully")
}

// publishEvent 发布事件到目标用户的个人频道
func (s *chatServiceImpl) publishEvent(ctx context.Context, eventType string, msg *mongo.Message, targetUserIDs ...uint64) {
	event := &dto.PushEventDTO{
		Type:    eventType,
		Message: *toMessageDTO(msg),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error("推送事件序列化失败", "err", err)
		return
	}
	for _, uid := range targetUserIDs {
		channel := consts.IMUserKey + strconv.FormatUint(uid, 10)
		if err := redis.Publish(ctx, channel, data); err != nil {
			log.Error("推送事件发布失败", "channel", channel, "err", err)
		}
	}
}

// maybeAutoReply 运营人员离线时由助手代答
func (s *chatServiceImpl) maybeAutoReply(conv *model.Conversation, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.assistant.OperatorOnline(ctx) {
		return
	}
	answer, err := s.assistant.Reply(ctx, question)
	if err != nil {
		log.Error("自动回复生成失败", "conv_id", conv.ID, "err", err)
		return
	}
	if strings.TrimSpace(answer) == "" {
		return
	}

	msgModel := &mongo.Message{
		ConversationID: conv.ID,
		SenderID:       conv.OperatorID,
		SenderName:     "智能助手",
		Content:        answer,
		Read:           false,
		CreatedAt:      time.Now(),
	}
	if err := s.messageRepo.SaveMessage(ctx, msgModel); err != nil {
		log.Error("自动回复入库失败", "conv_id", conv.ID, "err", err)
		return
	}
	if err := s.convRepo.TouchPreview(ctx, conv.ID, truncatePreview(answer), conv.OperatorID); err != nil {
		log.Error("更新会话预览失败", "conv_id", conv.ID, "err", err)
	}
	s.publishEvent(ctx, consts.PushTypeInsert, msgModel, conv.CustomerID, conv.OperatorID)
}

func (s *chatServiceImpl) retryWorker() {
	defer s.wg.Done()
	for {
		select {
		case msg := <-s.retryChan:
			backoff := time.Second
			for i := 0; i < 3; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := s.messageRepo.SaveMessage(ctx, msg)
				cancel()
				if err == nil {
					break
				}
				time.Sleep(backoff)
				backoff *= 2
			}
		case <-s.stopChan:
			return
		}
	}
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewMaxLen {
		return content
	}
	return string(runes[:previewMaxLen])
}

func toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}
