package model

import "time"

// Conversation 客户与运营人员的会话主表
type Conversation struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID     uint64    `gorm:"uniqueIndex:idx_customer_operator;not null" json:"customerId"`
	OperatorID     uint64    `gorm:"uniqueIndex:idx_customer_operator;index;not null" json:"operatorId"`
	Subject        string    `gorm:"type:varchar(120)" json:"subject"`
	LastMsgContent string    `gorm:"type:varchar(255)" json:"lastMsgContent"`
	LastSenderID   uint64    `gorm:"not null;default:0" json:"lastSenderId"`
	LastMessageAt  time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }
