package dto

import "time"

// CreateRequestDTO 提交服务申请
type CreateRequestDTO struct {
	ContactName string `json:"contact_name" binding:"required" validate:"required,min=1,max=80"`
	Email       string `json:"email" binding:"required" validate:"required,email"`
	ServiceType string `json:"service_type" binding:"required" validate:"required,max=50"`
	Budget      int64  `json:"budget" validate:"omitempty,min=0"`
	Details     string `json:"details" validate:"omitempty,max=4000"`
}

// RequestDTO 服务申请明细
type RequestDTO struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	ContactName string    `json:"contact_name"`
	Email       string    `json:"email"`
	ServiceType string    `json:"service_type"`
	Budget      int64     `json:"budget"`
	Details     string    `json:"details"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchRequestDTO 后台申请单检索
type SearchRequestDTO struct {
	Keyword string `form:"keyword" binding:"required"`
	Status  string `form:"status"`
	Page    int    `form:"page,default=1" validate:"omitempty,min=1"`
	Size    int    `form:"size,default=20" validate:"omitempty,min=1,max=100"`
}

// UpdateRequestStatusDTO 申请单状态流转
type UpdateRequestStatusDTO struct {
	Status string `json:"status" binding:"required" validate:"required,oneof=NEW IN_PROGRESS QUOTED CLOSED"`
}
