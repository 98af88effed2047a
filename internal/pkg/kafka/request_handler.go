package kafka

import (
	"context"
	log "log/slog"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/es"

	"github.com/IBM/sarama"
)

const canalTimeLayout = "2006-01-02 15:04:05"

// RequestHandler 消费 service_requests 表的变更，同步到检索索引
type RequestHandler struct {
	requestESRepo es.RequestRepo
}

func NewRequestHandler(requestESRepo es.RequestRepo) *RequestHandler {
	return &RequestHandler{
		requestESRepo: requestESRepo,
	}
}

func (s *RequestHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("request consumer setup")
	return nil
}

func (s *RequestHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("request consumer cleanup")
	return nil
}

func (s *RequestHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-request consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-request process batch error", "err", err)
		return err
	}
	return nil
}

func (s *RequestHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, "service_requests")
	if err != nil {
		return err
	}

	switch canalMsg.Type {
	case INSERT, UPDATE:
		return s.requestESRepo.IndexRequest(ctx, rowToRequestES(canalMsg.Data[0]))
	case DELETE:
		return s.requestESRepo.DeleteRequest(ctx, StrToUint64(canalMsg.Data[0]["id"]))
	default:
		return nil
	}
}

func rowToRequestES(row map[string]interface{}) *es.RequestES {
	doc := &es.RequestES{
		ID:          StrToUint64(row["id"]),
		UserID:      StrToUint64(row["user_id"]),
		ContactName: RowStr(row, "contact_name"),
		Email:       RowStr(row, "email"),
		ServiceType: RowStr(row, "service_type"),
		Budget:      StrToInt64(row["budget"]),
		Details:     RowStr(row, "details"),
		Status:      RowStr(row, "status"),
	}
	if t, err := time.ParseInLocation(canalTimeLayout, RowStr(row, "created_at"), time.Local); err == nil {
		doc.CreatedAt = t
	}
	if t, err := time.ParseInLocation(canalTimeLayout, RowStr(row, "updated_at"), time.Local); err == nil {
		doc.UpdatedAt = t
	}
	return doc
}
