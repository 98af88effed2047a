package dto

import "time"

// ContractFileDTO 合同文件明细
type ContractFileDTO struct {
	ID        uint64     `json:"id"`
	RequestID uint64     `json:"request_id"`
	FileName  string     `json:"file_name"`
	FileType  string     `json:"file_type"`
	URL       string     `json:"url"`
	ThumbURL  *string    `json:"thumb_url,omitempty"`
	Size      int64      `json:"size"`
	IsSigned  bool       `json:"is_signed"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
