package es

import "time"

// RequestES 写入 ES 的服务需求单文档
type RequestES struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	ContactName string    `json:"contact_name"`
	Email       string    `json:"email"`
	ServiceType string    `json:"service_type"`
	Budget      int64     `json:"budget"`
	Details     string    `json:"details"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
