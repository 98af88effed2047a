package kafka

import (
	"context"
	log "log/slog"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"

	"github.com/IBM/sarama"
)

// InvoiceHandler 消费 invoices 表的变更，维护按日入账汇总
// 以 MySQL 变更流为唯一写入方，避免回调与业务双写造成重复累计
type InvoiceHandler struct{}

func NewInvoiceHandler() *InvoiceHandler {
	return &InvoiceHandler{}
}

func (s *InvoiceHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("invoice consumer setup")
	return nil
}

func (s *InvoiceHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("invoice consumer cleanup")
	return nil
}

func (s *InvoiceHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-invoice consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-invoice process batch error", "err", err)
		return err
	}
	return nil
}

func (s *InvoiceHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, "invoices")
	if err != nil {
		return err
	}
	if canalMsg.Type != UPDATE {
		return nil
	}

	row := canalMsg.Data[0]
	newStatus := RowStr(row, "status")

	// 只关心状态字段发生变化的行
	var oldStatus string
	if len(canalMsg.Old) > 0 {
		if _, ok := canalMsg.Old[0]["status"]; !ok {
			return nil
		}
		oldStatus = RowStr(canalMsg.Old[0], "status")
	}

	amount := StrToInt64(row["amount_cents"])
	switch {
	case newStatus == "PAID" && oldStatus != "PAID":
		return s.incrRevenue(ctx, RowStr(row, "paid_at"), amount)
	case newStatus == "REFUNDED" && oldStatus == "PAID":
		return s.incrRevenue(ctx, RowStr(row, "paid_at"), -amount)
	default:
		return nil
	}
}

func (s *InvoiceHandler) incrRevenue(ctx context.Context, paidAt string, delta int64) error {
	at := time.Now()
	if t, err := time.ParseInLocation(canalTimeLayout, paidAt, time.Local); err == nil {
		at = t
	}

	// 日榜与月榜一次提交
	pipe := redis.GetRdbClient().Pipeline()
	pipe.IncrBy(ctx, consts.RevenueDailyKey+at.Format("2006-01-02"), delta)
	pipe.IncrBy(ctx, consts.RevenueMonthlyKey+at.Format("2006-01"), delta)
	_, err := pipe.Exec(ctx)
	return err
}
