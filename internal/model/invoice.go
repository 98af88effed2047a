package model

import "time"

const (
	InvoiceStatusPending  = "PENDING"
	InvoiceStatusPaid     = "PAID"
	InvoiceStatusFailed   = "FAILED"
	InvoiceStatusRefunded = "REFUNDED"
	InvoiceStatusVoid     = "VOID"
)

// Invoice 账单表，金额单位为分
type Invoice struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID       uint64     `gorm:"index;not null" json:"request_id"`
	UserID          uint64     `gorm:"index;not null" json:"user_id"`
	AmountCents     int64      `gorm:"not null" json:"amount_cents"`
	Currency        string     `gorm:"type:varchar(10);not null;default:'usd'" json:"currency"`
	Description     string     `gorm:"type:varchar(255)" json:"description"`
	Status          string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentIntentID *string    `gorm:"type:varchar(120);uniqueIndex:idx_payment_intent" json:"payment_intent_id"`
	PaidAt          *time.Time `json:"paid_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
