package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetConversationByCustomer(ctx context.Context, customerID uint64, operatorID uint64) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID uint64) ([]*model.Conversation, error)
	TouchPreview(ctx context.Context, convID uint64, lastMsg string, senderID uint64) error
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(conv).Error
}

// GetConversation 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetConversationByCustomer 查询客户与指定运营人员的会话
func (s *conversationRepoImpl) GetConversationByCustomer(ctx context.Context, customerID uint64, operatorID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND operator_id = ?", customerID, operatorID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListByParticipant 按最近活跃时间倒序返回用户参与的会话
func (s *conversationRepoImpl) ListByParticipant(ctx context.Context, userID uint64) ([]*model.Conversation, error) {
	convs := make([]*model.Conversation, 0)
	err := s.db.WithContext(ctx).
		Where("customer_id = ? OR operator_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// TouchPreview 原子更新会话预览信息与活跃时间
func (s *conversationRepoImpl) TouchPreview(ctx context.Context, convID uint64, lastMsg string, senderID uint64) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_msg_content": lastMsg,
			"last_sender_id":   senderID,
			"last_message_at":  time.Now(),
		}).Error
}
