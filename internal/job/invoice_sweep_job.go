package job

import (
	"context"
	log "log/slog"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/service"
)

// InvoiceSweepJob 作废长期未支付的账单
type InvoiceSweepJob struct {
	billingSvc service.BillingService
}

func NewInvoiceSweepJob(billingSvc service.BillingService) *InvoiceSweepJob {
	return &InvoiceSweepJob{billingSvc: billingSvc}
}

func (s *InvoiceSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Info("start invoice sweep job")
	if err := s.billingSvc.SweepStaleInvoices(ctx); err != nil {
		log.Error("invoice sweep job failed", "err", err)
		return
	}
	log.Info("invoice sweep job finished")
}
