package service

import (
	"context"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/es"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/repository"

	"github.com/jinzhu/copier"
)

type RequestService interface {
	CreateRequest(ctx context.Context, userID uint64, req *dto.CreateRequestDTO) (*dto.RequestDTO, error)
	GetRequest(ctx context.Context, userID uint64, isStaff bool, id uint64) (*dto.RequestDTO, error)
	ListMyRequests(ctx context.Context, userID uint64) ([]*dto.RequestDTO, error)
	ListRequests(ctx context.Context, status string, page int, size int) ([]*dto.RequestDTO, error)
	SearchRequests(ctx context.Context, searchDTO *dto.SearchRequestDTO) ([]*dto.RequestDTO, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
}

type requestServiceImpl struct {
	requestRepo repository.ServiceRequestRepo
	requestES   es.RequestRepo
}

func NewRequestService(requestRepo repository.ServiceRequestRepo, requestES es.RequestRepo) RequestService {
	return &requestServiceImpl{
		requestRepo: requestRepo,
		requestES:   requestES,
	}
}

// CreateRequest 客户提交服务申请，检索索引由数据变更管道异步同步
func (s *requestServiceImpl) CreateRequest(ctx context.Context, userID uint64, reqDTO *dto.CreateRequestDTO) (*dto.RequestDTO, error) {
	req := &model.ServiceRequest{}
	if err := copier.Copy(req, reqDTO); err != nil {
		return nil, err
	}
	req.UserID = userID
	req.Status = model.RequestStatusNew

	if err := s.requestRepo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return toRequestDTO(req), nil
}

func (s *requestServiceImpl) GetRequest(ctx context.Context, userID uint64, isStaff bool, id uint64) (*dto.RequestDTO, error) {
	req, err := s.requestRepo.GetRequestById(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if !isStaff && req.UserID != userID {
		return nil, UnauthorizedError
	}
	return toRequestDTO(req), nil
}

func (s *requestServiceImpl) ListMyRequests(ctx context.Context, userID uint64) ([]*dto.RequestDTO, error) {
	reqs, err := s.requestRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toRequestDTOs(reqs), nil
}

func (s *requestServiceImpl) ListRequests(ctx context.Context, status string, page int, size int) ([]*dto.RequestDTO, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	reqs, err := s.requestRepo.ListByStatus(ctx, status, page, size)
	if err != nil {
		return nil, err
	}
	return toRequestDTOs(reqs), nil
}

// SearchRequests 走 Elasticsearch 的后台全文检索
func (s *requestServiceImpl) SearchRequests(ctx context.Context, searchDTO *dto.SearchRequestDTO) ([]*dto.RequestDTO, error) {
	if searchDTO.Page < 1 {
		searchDTO.Page = 1
	}
	if searchDTO.Size < 1 || searchDTO.Size > 100 {
		searchDTO.Size = 20
	}
	from := (searchDTO.Page - 1) * searchDTO.Size
	docs, err := s.requestES.SearchRequests(ctx, searchDTO.Keyword, searchDTO.Status, from, searchDTO.Size)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.RequestDTO, 0, len(docs))
	for _, doc := range docs {
		reqDTO := &dto.RequestDTO{}
		if err := copier.Copy(reqDTO, doc); err != nil {
			return nil, err
		}
		res = append(res, reqDTO)
	}
	return res, nil
}

func (s *requestServiceImpl) UpdateStatus(ctx context.Context, id uint64, status string) error {
	switch status {
	case model.RequestStatusNew, model.RequestStatusInProgress, model.RequestStatusQuoted, model.RequestStatusClosed:
	default:
		return ErrRequestStatusInvalid
	}
	rows, err := s.requestRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func toRequestDTO(req *model.ServiceRequest) *dto.RequestDTO {
	return &dto.RequestDTO{
		ID:          req.ID,
		UserID:      req.UserID,
		ContactName: req.ContactName,
		Email:       req.Email,
		ServiceType: req.ServiceType,
		Budget:      req.Budget,
		Details:     req.Details,
		Status:      req.Status,
		CreatedAt:   req.CreatedAt,
	}
}

func toRequestDTOs(reqs []*model.ServiceRequest) []*dto.RequestDTO {
	res := make([]*dto.RequestDTO, 0, len(reqs))
	for _, req := range reqs {
		res = append(res, toRequestDTO(req))
	}
	return res
}
