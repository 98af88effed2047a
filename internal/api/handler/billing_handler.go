package handler

import (
	"io"
	"strconv"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/response"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/util"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingSvc service.BillingService
}

func NewBillingHandler(billingSvc service.BillingService) *BillingHandler {
	return &BillingHandler{billingSvc: billingSvc}
}

// CreateInvoice 后台对申请单开账单
func (s *BillingHandler) CreateInvoice(c *gin.Context) {
	var billDTO dto.CreateInvoiceDTO
	if err := c.ShouldBind(&billDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&billDTO); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.billingSvc.CreateInvoice(c.Request.Context(), &billDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) GetInvoice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	res, err := s.billingSvc.GetInvoice(c.Request.Context(), userID, isStaff(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) ListMine(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.billingSvc.ListMyInvoices(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Refund 后台对已支付账单退款
func (s *BillingHandler) Refund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.billingSvc.RefundInvoice(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Void 后台作废待支付账单
func (s *BillingHandler) Void(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.billingSvc.VoidInvoice(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Revenue 查询某日入账汇总，默认当天
func (s *BillingHandler) Revenue(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	res, err := s.billingSvc.GetRevenue(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Webhook 支付网关回调入口，验签在服务层完成
func (s *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	sigHeader := c.GetHeader("Stripe-Signature")

	if err := s.billingSvc.ProcessWebhook(c.Request.Context(), payload, sigHeader); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
