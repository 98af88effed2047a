package stripe

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
)

const DefaultBaseURL = "https://api.stripe.com"

// PaymentIntent Stripe 支付意向对象（只保留用到的字段）
type PaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	LatestCharge string `json:"latest_charge"`
}

// Refund Stripe 退款对象
type Refund struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
}

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client 支付网关 REST 客户端，所有操作都是对 Stripe API 的直通调用
type Client struct {
	http     *resty.Client
	currency string
}

func NewClient(cfg config.StripeConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetBasicAuth(cfg.SecretKey, "").
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &Client{http: http, currency: cfg.Currency}
}

// CreatePaymentIntent 创建支付意向
func (s *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, description string, metadata map[string]string) (*PaymentIntent, error) {
	form := map[string]string{
		"amount":      strconv.FormatInt(amountCents, 10),
		"currency":    s.currency,
		"description": description,
	}
	for k, v := range metadata {
		form[fmt.Sprintf("metadata[%s]", k)] = v
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/v1/payment_intents")
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	return decodeIntent(resp)
}

// GetPaymentIntent 查询支付意向
func (s *Client) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		Get("/v1/payment_intents/" + intentID)
	if err != nil {
		return nil, errors.Wrap(err, "get payment intent")
	}

	return decodeIntent(resp)
}

// CancelPaymentIntent 取消未支付的支付意向
func (s *Client) CancelPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		Post("/v1/payment_intents/" + intentID + "/cancel")
	if err != nil {
		return nil, errors.Wrap(err, "cancel payment intent")
	}

	return decodeIntent(resp)
}

// CreateRefund 对支付意向发起全额退款
func (s *Client) CreateRefund(ctx context.Context, intentID string) (*Refund, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"payment_intent": intentID}).
		Post("/v1/refunds")
	if err != nil {
		return nil, errors.Wrap(err, "create refund")
	}

	if resp.IsError() {
		return nil, apiError(resp)
	}

	var refund Refund
	if err := json.Unmarshal(resp.Body(), &refund); err != nil {
		return nil, errors.Wrap(err, "decode refund response")
	}
	return &refund, nil
}

func decodeIntent(resp *resty.Response) (*PaymentIntent, error) {
	if resp.IsError() {
		return nil, apiError(resp)
	}

	var intent PaymentIntent
	if err := json.Unmarshal(resp.Body(), &intent); err != nil {
		return nil, errors.Wrap(err, "decode payment intent response")
	}
	return &intent, nil
}

func apiError(resp *resty.Response) error {
	var body apiErrorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("stripe api error [%d] %s: %s", resp.StatusCode(), body.Error.Code, body.Error.Message)
	}
	return fmt.Errorf("stripe api error [%d]", resp.StatusCode())
}
