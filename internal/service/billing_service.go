package service

import (
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/stripe"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/repository"

	"github.com/goccy/go-json"
)

// 超过该时长仍未支付的账单会被定时任务作废
const InvoiceStaleAfter = 30 * 24 * time.Hour

type BillingService interface {
	CreateInvoice(ctx context.Context, billDTO *dto.CreateInvoiceDTO) (*dto.InvoiceDTO, error)
	GetInvoice(ctx context.Context, userID uint64, isStaff bool, id uint64) (*dto.InvoiceDTO, error)
	ListMyInvoices(ctx context.Context, userID uint64) ([]*dto.InvoiceDTO, error)
	RefundInvoice(ctx context.Context, id uint64) error
	VoidInvoice(ctx context.Context, id uint64) error
	SweepStaleInvoices(ctx context.Context) error
	ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) error
	GetRevenue(ctx context.Context, date string) (*dto.RevenueDTO, error)
}

type billingServiceImpl struct {
	invoiceRepo  repository.InvoiceRepo
	requestRepo  repository.ServiceRequestRepo
	stripeClient *stripe.Client
}

func NewBillingService(invoiceRepo repository.InvoiceRepo, requestRepo repository.ServiceRequestRepo, stripeClient *stripe.Client) BillingService {
	return &billingServiceImpl{
		invoiceRepo:  invoiceRepo,
		requestRepo:  requestRepo,
		stripeClient: stripeClient,
	}
}

// CreateInvoice 创建账单并向支付网关申请 PaymentIntent
func (s *billingServiceImpl) CreateInvoice(ctx context.Context, billDTO *dto.CreateInvoiceDTO) (*dto.InvoiceDTO, error) {
	if billDTO.AmountCents <= 0 {
		return nil, ErrInvoiceAmountInvalid
	}
	req, err := s.requestRepo.GetRequestById(ctx, billDTO.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	invoice := &model.Invoice{
		RequestID:   billDTO.RequestID,
		UserID:      req.UserID,
		AmountCents: billDTO.AmountCents,
		Currency:    config.Cfg.Stripe.Currency,
		Description: billDTO.Description,
		Status:      model.InvoiceStatusPending,
	}
	if err := s.invoiceRepo.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	intent, err := s.stripeClient.CreatePaymentIntent(ctx, billDTO.AmountCents, billDTO.Description, map[string]string{
		"invoice_id": strconv.FormatUint(invoice.ID, 10),
		"request_id": strconv.FormatUint(billDTO.RequestID, 10),
	})
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.UpdatePaymentIntent(ctx, invoice.ID, intent.ID); err != nil {
		return nil, err
	}
	invoice.PaymentIntentID = &intent.ID

	res := toInvoiceDTO(invoice)
	res.ClientSecret = intent.ClientSecret
	return res, nil
}

func (s *billingServiceImpl) GetInvoice(ctx context.Context, userID uint64, isStaff bool, id uint64) (*dto.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetInvoiceById(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	if !isStaff && invoice.UserID != userID {
		return nil, UnauthorizedError
	}

	res := toInvoiceDTO(invoice)
	// 待支付账单补发支付凭证，供客户端继续支付
	if invoice.Status == model.InvoiceStatusPending && invoice.PaymentIntentID != nil {
		intent, err := s.stripeClient.GetPaymentIntent(ctx, *invoice.PaymentIntentID)
		if err == nil {
			res.ClientSecret = intent.ClientSecret
		}
	}
	return res, nil
}

func (s *billingServiceImpl) ListMyInvoices(ctx context.Context, userID uint64) ([]*dto.InvoiceDTO, error) {
	invoices, err := s.invoiceRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.InvoiceDTO, 0, len(invoices))
	for _, invoice := range invoices {
		res = append(res, toInvoiceDTO(invoice))
	}
	return res, nil
}

// RefundInvoice 对已支付账单发起退款，状态流转由回调驱动
func (s *billingServiceImpl) RefundInvoice(ctx context.Context, id uint64) error {
	invoice, err := s.invoiceRepo.GetInvoiceById(ctx, id)
	if err != nil {
		return err
	}
	if invoice == nil {
		return ErrInvoiceNotFound
	}
	if invoice.Status != model.InvoiceStatusPaid || invoice.PaymentIntentID == nil {
		return ErrInvoiceStatusInvalid
	}

	_, err = s.stripeClient.CreateRefund(ctx, *invoice.PaymentIntentID)
	return err
}

// VoidInvoice 作废待支付账单并取消其 PaymentIntent
func (s *billingServiceImpl) VoidInvoice(ctx context.Context, id uint64) error {
	invoice, err := s.invoiceRepo.GetInvoiceById(ctx, id)
	if err != nil {
		return err
	}
	if invoice == nil {
		return ErrInvoiceNotFound
	}
	if invoice.Status != model.InvoiceStatusPending {
		return ErrInvoiceStatusInvalid
	}

	rows, err := s.invoiceRepo.UpdateStatus(ctx, id, model.InvoiceStatusPending, model.InvoiceStatusVoid, nil)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvoiceStatusInvalid
	}
	if invoice.PaymentIntentID != nil {
		if _, err := s.stripeClient.CancelPaymentIntent(ctx, *invoice.PaymentIntentID); err != nil {
			log.Error("取消 PaymentIntent 失败", "invoice_id", id, "err", err)
		}
	}
	return nil
}

// SweepStaleInvoices 作废长期未支付的账单
func (s *billingServiceImpl) SweepStaleInvoices(ctx context.Context) error {
	stale, err := s.invoiceRepo.ListByStatusBefore(ctx, model.InvoiceStatusPending, time.Now().Add(-InvoiceStaleAfter))
	if err != nil {
		return err
	}
	for _, invoice := range stale {
		if err := s.VoidInvoice(ctx, invoice.ID); err != nil {
			log.Error("作废过期账单失败", "invoice_id", invoice.ID, "err", err)
		}
	}
	return nil
}

// ProcessWebhook 处理支付网关回调，事件级去重 + 状态前置条件双重幂等
func (s *billingServiceImpl) ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := stripe.ConstructEvent(payload, sigHeader, config.Cfg.Stripe.WebhookSecret)
	if err != nil {
		log.Warn("回调签名校验失败", "err", err)
		return ErrWebhookSignature
	}

	lockKey := consts.WebhookEventKey + event.ID
	locked, err := redis.TryLock(ctx, lockKey, 1, 24*time.Hour, 1)
	if err != nil {
		return err
	}
	if !locked {
		// 重复投递，直接确认
		return nil
	}

	if err := s.dispatchWebhookEvent(ctx, event); err != nil {
		// 处理失败时释放去重锁，网关重试可再次进入
		redis.UnLock(ctx, lockKey, 1)
		return err
	}
	return nil
}

func (s *billingServiceImpl) dispatchWebhookEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventPaymentSucceeded:
		return s.handlePaymentResult(ctx, event, model.InvoiceStatusPaid)
	case stripe.EventPaymentFailed:
		return s.handlePaymentResult(ctx, event, model.InvoiceStatusFailed)
	case stripe.EventChargeRefunded:
		return s.handleChargeRefunded(ctx, event)
	default:
		log.Info("忽略未订阅的回调事件", "type", event.Type)
		return nil
	}
}

func (s *billingServiceImpl) GetRevenue(ctx context.Context, date string) (*dto.RevenueDTO, error) {
	// date 形如 2006-01-02 查日榜，2006-01 查月榜
	key := consts.RevenueDailyKey + date
	if len(date) == len("2006-01") {
		key = consts.RevenueMonthlyKey + date
	}
	value, err := redis.GetValue(ctx, key)
	if err != nil {
		return nil, err
	}
	var amount int64
	if value != "" {
		amount, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, err
		}
	}
	return &dto.RevenueDTO{Date: date, AmountCents: amount}, nil
}

func (s *billingServiceImpl) handlePaymentResult(ctx context.Context, event *stripe.Event, toStatus string) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return err
	}
	invoice, err := s.invoiceRepo.GetInvoiceByPaymentIntent(ctx, intent.ID)
	if err != nil {
		return err
	}
	if invoice == nil {
		log.Warn("回调关联的账单不存在", "intent_id", intent.ID)
		return nil
	}

	var paidAt *time.Time
	if toStatus == model.InvoiceStatusPaid {
		now := time.Now()
		paidAt = &now
	}
	rows, err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, model.InvoiceStatusPending, toStatus, paidAt)
	if err != nil {
		return err
	}
	if rows == 0 {
		log.Info("账单状态已流转，跳过回调", "invoice_id", invoice.ID, "to", toStatus)
	}
	return nil
}

func (s *billingServiceImpl) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	var charge stripe.EventCharge
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return err
	}
	if !charge.Refunded || charge.PaymentIntent == "" {
		return nil
	}
	invoice, err := s.invoiceRepo.GetInvoiceByPaymentIntent(ctx, charge.PaymentIntent)
	if err != nil {
		return err
	}
	if invoice == nil {
		log.Warn("退款回调关联的账单不存在", "intent_id", charge.PaymentIntent)
		return nil
	}

	rows, err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, model.InvoiceStatusPaid, model.InvoiceStatusRefunded, nil)
	if err != nil {
		return err
	}
	if rows == 0 {
		log.Info("账单已退款，跳过回调", "invoice_id", invoice.ID)
	}
	return nil
}

func toInvoiceDTO(invoice *model.Invoice) *dto.InvoiceDTO {
	return &dto.InvoiceDTO{
		ID:          invoice.ID,
		RequestID:   invoice.RequestID,
		AmountCents: invoice.AmountCents,
		Currency:    invoice.Currency,
		Description: invoice.Description,
		Status:      invoice.Status,
		PaidAt:      invoice.PaidAt,
		CreatedAt:   invoice.CreatedAt,
	}
}
