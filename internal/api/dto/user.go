package dto

import "time"

// UserDTO 用户
type UserDTO struct {
	UserID    *uint64    `json:"user_id,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Nickname  *string    `json:"nickname,omitempty"`
	Company   *string    `json:"company,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Roles     []string   `json:"roles,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RegisterDTO 注册
type RegisterDTO struct {
	Email    string  `json:"email" binding:"required" validate:"required,email"`
	Password string  `json:"password" binding:"required" validate:"min=6,max=20"`
	Nickname string  `json:"nickname" validate:"required,min=1,max=30"`
	Company  *string `json:"company,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// CredentialDTO 登录凭证
type CredentialDTO struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ChangePasswordDTO 修改密码
type ChangePasswordDTO struct {
	OldPassword *string `json:"old_password" binding:"required" validate:"min=6,max=20"`
	NewPassword *string `json:"new_password" binding:"required" validate:"min=6,max=20"`
}

// LoginResultDTO 登录结果
type LoginResultDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}
