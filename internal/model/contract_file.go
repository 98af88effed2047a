package model

import "time"

// ContractFile 合同与交付物文件记录
type ContractFile struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID uint64     `gorm:"index;not null" json:"request_id"`
	UserID    uint64     `gorm:"index;not null" json:"user_id"`
	FileName  string     `gorm:"type:varchar(255);not null" json:"file_name"`
	FileType  string     `gorm:"type:varchar(64);not null" json:"file_type"` // e.g., image/png, application/pdf
	ObjectKey string     `gorm:"type:varchar(512);not null" json:"object_key"`
	ThumbKey  *string    `gorm:"type:varchar(512)" json:"thumb_key"`
	Size      int64      `gorm:"not null;default:0" json:"size"`
	IsSigned  bool       `gorm:"type:tinyint(1);default:0" json:"is_signed"`
	SignedAt  *time.Time `json:"signed_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (ContractFile) TableName() string {
	return "contract_files"
}
