package service

import (
	"context"
	"testing"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/es"
)

// fakeRequestRepo 内存版服务申请仓储
type fakeRequestRepo struct {
	nextID uint64
	reqs   map[uint64]*model.ServiceRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{reqs: make(map[uint64]*model.ServiceRequest)}
}

func (f *fakeRequestRepo) CreateRequest(_ context.Context, req *model.ServiceRequest) error {
	f.nextID++
	req.ID = f.nextID
	cp := *req
	f.reqs[req.ID] = &cp
	return nil
}

func (f *fakeRequestRepo) GetRequestById(_ context.Context, id uint64) (*model.ServiceRequest, error) {
	req, ok := f.reqs[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) ListByUser(_ context.Context, userID uint64) ([]*model.ServiceRequest, error) {
	out := make([]*model.ServiceRequest, 0)
	for _, req := range f.reqs {
		if req.UserID == userID {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByStatus(_ context.Context, status string, _ int, _ int) ([]*model.ServiceRequest, error) {
	out := make([]*model.ServiceRequest, 0)
	for _, req := range f.reqs {
		if status == "" || req.Status == status {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, id uint64, status string) (int64, error) {
	req, ok := f.reqs[id]
	if !ok {
		return 0, nil
	}
	req.Status = status
	return 1, nil
}

// fakeRequestES 检索仓储打桩
type fakeRequestES struct {
	docs        []*es.RequestES
	lastKeyword string
	lastStatus  string
	lastFrom    int
}

func (f *fakeRequestES) IndexRequest(_ context.Context, _ *es.RequestES) error { return nil }
func (f *fakeRequestES) DeleteRequest(_ context.Context, _ uint64) error       { return nil }

func (f *fakeRequestES) SearchRequests(_ context.Context, keyword string, status string, from, _ int) ([]*es.RequestES, error) {
	f.lastKeyword = keyword
	f.lastStatus = status
	f.lastFrom = from
	return f.docs, nil
}

func newTestRequestService() (RequestService, *fakeRequestRepo, *fakeRequestES) {
	repo := newFakeRequestRepo()
	esRepo := &fakeRequestES{}
	return NewRequestService(repo, esRepo), repo, esRepo
}

// 新申请落库后状态固定为 NEW
func TestCreateRequestStatusNew(t *testing.T) {
	svc, _, _ := newTestRequestService()

	res, err := svc.CreateRequest(context.Background(), 5, &dto.CreateRequestDTO{
		ContactName: "李先生",
		Email:       "li@example.com",
		ServiceType: "corporate-site",
		Budget:      500000,
		Details:     "需要一个企业官网",
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if res.Status != model.RequestStatusNew {
		t.Errorf("Expected status %s, got %s", model.RequestStatusNew, res.Status)
	}
	if res.UserID != 5 {
		t.Errorf("Expected user 5, got %d", res.UserID)
	}
}

// 非本人且非员工访问他人申请被拒绝
func TestGetRequestOwnership(t *testing.T) {
	svc, repo, _ := newTestRequestService()
	req := &model.ServiceRequest{UserID: 5, Status: model.RequestStatusNew}
	if err := repo.CreateRequest(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetRequest(context.Background(), 7, false, req.ID); err != UnauthorizedError {
		t.Errorf("Expected UnauthorizedError, got %v", err)
	}
	if _, err := svc.GetRequest(context.Background(), 7, true, req.ID); err != nil {
		t.Errorf("Expected staff access to succeed, got %v", err)
	}
	if _, err := svc.GetRequest(context.Background(), 5, false, req.ID); err != nil {
		t.Errorf("Expected owner access to succeed, got %v", err)
	}
	if _, err := svc.GetRequest(context.Background(), 5, false, 404); err != ErrRequestNotFound {
		t.Errorf("Expected ErrRequestNotFound, got %v", err)
	}
}

// 状态流转只接受白名单内的取值
func TestUpdateStatusWhitelist(t *testing.T) {
	svc, repo, _ := newTestRequestService()
	req := &model.ServiceRequest{UserID: 5, Status: model.RequestStatusNew}
	if err := repo.CreateRequest(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateStatus(context.Background(), req.ID, "SHIPPED"); err != ErrRequestStatusInvalid {
		t.Errorf("Expected ErrRequestStatusInvalid, got %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), req.ID, model.RequestStatusQuoted); err != nil {
		t.Errorf("Expected valid transition to succeed, got %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), 404, model.RequestStatusClosed); err != ErrRequestNotFound {
		t.Errorf("Expected ErrRequestNotFound for missing row, got %v", err)
	}
}

// 检索分页换算为 from 偏移量
func TestSearchRequestsPaging(t *testing.T) {
	svc, _, esRepo := newTestRequestService()
	esRepo.docs = []*es.RequestES{{ID: 1, ContactName: "李先生", Status: model.RequestStatusNew}}

	res, err := svc.SearchRequests(context.Background(), &dto.SearchRequestDTO{
		Keyword: "官网",
		Status:  model.RequestStatusNew,
		Page:    3,
		Size:    10,
	})
	if err != nil {
		t.Fatalf("SearchRequests failed: %v", err)
	}
	if esRepo.lastFrom != 20 {
		t.Errorf("Expected from=20 for page 3 size 10, got %d", esRepo.lastFrom)
	}
	if esRepo.lastKeyword != "官网" || esRepo.lastStatus != model.RequestStatusNew {
		t.Errorf("Expected keyword/status passed through, got %q / %q", esRepo.lastKeyword, esRepo.lastStatus)
	}
	if len(res) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(res))
	}
}
