package service

import (
	"context"
	"testing"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
)

// fakeInvoiceRepo 记录过期扫描的查询条件供断言
type fakeInvoiceRepo struct {
	lastStatus string
	lastBefore time.Time
}

func (f *fakeInvoiceRepo) CreateInvoice(_ context.Context, _ *model.Invoice) error {
	return nil
}

func (f *fakeInvoiceRepo) GetInvoiceById(_ context.Context, _ uint64) (*model.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) GetInvoiceByPaymentIntent(_ context.Context, _ string) (*model.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) ListByUser(_ context.Context, _ uint64) ([]*model.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) ListByStatusBefore(_ context.Context, status string, before time.Time) ([]*model.Invoice, error) {
	f.lastStatus = status
	f.lastBefore = before
	return nil, nil
}

func (f *fakeInvoiceRepo) UpdatePaymentIntent(_ context.Context, _ uint64, _ string) error {
	return nil
}

func (f *fakeInvoiceRepo) UpdateStatus(_ context.Context, _ uint64, _ string, _ string, _ *time.Time) (int64, error) {
	return 0, nil
}

// 过期账单扫描只找满 30 天仍未支付的单子
func TestSweepStaleInvoicesCutoff(t *testing.T) {
	repo := &fakeInvoiceRepo{}
	svc := NewBillingService(repo, nil, nil)

	if err := svc.SweepStaleInvoices(context.Background()); err != nil {
		t.Fatalf("SweepStaleInvoices failed: %v", err)
	}

	if repo.lastStatus != model.InvoiceStatusPending {
		t.Errorf("Expected pending status filter, got %q", repo.lastStatus)
	}
	want := time.Now().Add(-30 * 24 * time.Hour)
	if diff := repo.lastBefore.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("Expected cutoff 30 days ago, got %v", repo.lastBefore)
	}
}
