package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"

	"gorm.io/gorm"
)

type InvoiceRepo interface {
	CreateInvoice(ctx context.Context, invoice *model.Invoice) error
	GetInvoiceById(ctx context.Context, id uint64) (*model.Invoice, error)
	GetInvoiceByPaymentIntent(ctx context.Context, intentID string) (*model.Invoice, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Invoice, error)
	ListByStatusBefore(ctx context.Context, status string, before time.Time) ([]*model.Invoice, error)
	UpdatePaymentIntent(ctx context.Context, id uint64, intentID string) error
	UpdateStatus(ctx context.Context, id uint64, fromStatus string, toStatus string, paidAt *time.Time) (int64, error)
}

type invoiceRepoImpl struct {
	db *gorm.DB
}

func NewInvoiceRepo(db *gorm.DB) InvoiceRepo {
	return &invoiceRepoImpl{db: db}
}

func (s *invoiceRepoImpl) CreateInvoice(ctx context.Context, invoice *model.Invoice) error {
	return s.db.WithContext(ctx).Create(invoice).Error
}

func (s *invoiceRepoImpl) GetInvoiceById(ctx context.Context, id uint64) (*model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.WithContext(ctx).First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *invoiceRepoImpl) GetInvoiceByPaymentIntent(ctx context.Context, intentID string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *invoiceRepoImpl) ListByUser(ctx context.Context, userID uint64) ([]*model.Invoice, error) {
	invoices := make([]*model.Invoice, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListByStatusBefore 查询在指定时间之前创建且仍处于某状态的账单
func (s *invoiceRepoImpl) ListByStatusBefore(ctx context.Context, status string, before time.Time) ([]*model.Invoice, error) {
	invoices := make([]*model.Invoice, 0)
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, before).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *invoiceRepoImpl) UpdatePaymentIntent(ctx context.Context, id uint64, intentID string) error {
	return s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", id).
		Update("payment_intent_id", intentID).Error
}

// UpdateStatus 带前置状态条件的状态流转，保证幂等
func (s *invoiceRepoImpl) UpdateStatus(ctx context.Context, id uint64, fromStatus string, toStatus string, paidAt *time.Time) (int64, error) {
	updates := map[string]interface{}{"status": toStatus}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}
	result := s.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}
