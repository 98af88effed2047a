package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"

	"gorm.io/gorm"
)

type ContractRepo interface {
	CreateFile(ctx context.Context, file *model.ContractFile) error
	GetFileById(ctx context.Context, id uint64) (*model.ContractFile, error)
	ListByRequest(ctx context.Context, requestID uint64) ([]*model.ContractFile, error)
	MarkSigned(ctx context.Context, id uint64) (int64, error)
	DeleteFile(ctx context.Context, id uint64) error
}

type contractRepoImpl struct {
	db *gorm.DB
}

func NewContractRepo(db *gorm.DB) ContractRepo {
	return &contractRepoImpl{db: db}
}

func (s *contractRepoImpl) CreateFile(ctx context.Context, file *model.ContractFile) error {
	return s.db.WithContext(ctx).Create(file).Error
}

func (s *contractRepoImpl) GetFileById(ctx context.Context, id uint64) (*model.ContractFile, error) {
	var file model.ContractFile
	err := s.db.WithContext(ctx).First(&file, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

func (s *contractRepoImpl) ListByRequest(ctx context.Context, requestID uint64) ([]*model.ContractFile, error) {
	files := make([]*model.ContractFile, 0)
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *contractRepoImpl) MarkSigned(ctx context.Context, id uint64) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&model.ContractFile{}).
		Where("id = ? AND is_signed = 0", id).
		Updates(map[string]interface{}{
			"is_signed": true,
			"signed_at": &now,
		})
	return result.RowsAffected, result.Error
}

func (s *contractRepoImpl) DeleteFile(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Delete(&model.ContractFile{}, id).Error
}
