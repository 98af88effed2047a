package model

import (
	"time"
)

type User struct {
	ID        uint64  `gorm:"primaryKey"`
	Email     string  `gorm:"type:varchar(120);uniqueIndex:idx_email;not null"`
	Nickname  string  `gorm:"type:varchar(50);not null"`
	Password  *string `gorm:"type:varchar(255)"`
	Company   *string `gorm:"type:varchar(120)"`
	Phone     *string `gorm:"type:varchar(30)"`
	IsDelete  bool    `gorm:"type:tinyint(1);default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserRoles []UserRole `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}
