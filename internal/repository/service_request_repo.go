package repository

import (
	"context"
	"errors"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"

	"gorm.io/gorm"
)

type ServiceRequestRepo interface {
	CreateRequest(ctx context.Context, req *model.ServiceRequest) error
	GetRequestById(ctx context.Context, id uint64) (*model.ServiceRequest, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.ServiceRequest, error)
	ListByStatus(ctx context.Context, status string, page int, size int) ([]*model.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id uint64, status string) (int64, error)
}

type serviceRequestRepoImpl struct {
	db *gorm.DB
}

func NewServiceRequestRepo(db *gorm.DB) ServiceRequestRepo {
	return &serviceRequestRepoImpl{db: db}
}

func (s *serviceRequestRepoImpl) CreateRequest(ctx context.Context, req *model.ServiceRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *serviceRequestRepoImpl) GetRequestById(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	err := s.db.WithContext(ctx).First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (s *serviceRequestRepoImpl) ListByUser(ctx context.Context, userID uint64) ([]*model.ServiceRequest, error) {
	reqs := make([]*model.ServiceRequest, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *serviceRequestRepoImpl) ListByStatus(ctx context.Context, status string, page int, size int) ([]*model.ServiceRequest, error) {
	reqs := make([]*model.ServiceRequest, 0)
	query := s.db.WithContext(ctx).Model(&model.ServiceRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *serviceRequestRepoImpl) UpdateStatus(ctx context.Context, id uint64, status string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.ServiceRequest{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}
