package model

import "time"

const (
	RequestStatusNew        = "NEW"
	RequestStatusInProgress = "IN_PROGRESS"
	RequestStatusQuoted     = "QUOTED"
	RequestStatusClosed     = "CLOSED"
)

// ServiceRequest 网站建设服务申请单
type ServiceRequest struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64    `gorm:"index;not null" json:"user_id"`
	ContactName string    `gorm:"type:varchar(80);not null" json:"contact_name"`
	Email       string    `gorm:"type:varchar(120);not null" json:"email"`
	ServiceType string    `gorm:"type:varchar(50);not null" json:"service_type"` // e.g., landing-page, ecommerce, redesign
	Budget      int64     `gorm:"not null;default:0" json:"budget"`              // 预算，单位分
	Details     string    `gorm:"type:text" json:"details"`
	Status      string    `gorm:"type:varchar(20);not null;default:'NEW';index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}
