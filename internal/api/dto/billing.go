package dto

import "time"

// CreateInvoiceDTO 创建账单 (运营侧)
type CreateInvoiceDTO struct {
	RequestID   uint64 `json:"request_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required" validate:"required,min=50"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

// InvoiceDTO 账单明细
type InvoiceDTO struct {
	ID           uint64     `json:"id"`
	RequestID    uint64     `json:"request_id"`
	AmountCents  int64      `json:"amount_cents"`
	Currency     string     `json:"currency"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	ClientSecret string     `json:"client_secret,omitempty"` // 支付端确认用
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RefundInvoiceDTO 退款
type RefundInvoiceDTO struct {
	Reason string `json:"reason" validate:"omitempty,oneof=duplicate fraudulent requested_by_customer"`
}

// RevenueDTO 某日入账汇总
type RevenueDTO struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}
