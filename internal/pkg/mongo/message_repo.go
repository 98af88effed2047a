package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	ListByConversation(ctx context.Context, convID uint64) ([]*Message, error)
	ListByConversations(ctx context.Context, convIDs []uint64) ([]*Message, error)
	MarkConversationRead(ctx context.Context, convID uint64, readerID uint64) ([]*Message, error)
	CountUnread(ctx context.Context, convIDs []uint64, readerID uint64) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("message"),
	}
}

// SaveMessage 将消息存入 MongoDB，并回填服务端生成的 ID
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	res, err := s.col.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}
	return nil
}

// ListByConversation 按发送时间升序返回会话内全部消息
func (s *messageRepoImpl) ListByConversation(ctx context.Context, convID uint64) ([]*Message, error) {
	filter := bson.M{"conversation_id": convID}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// ListByConversations 批量拉取多个会话的消息，升序，调用方自行按会话分组
func (s *messageRepoImpl) ListByConversations(ctx context.Context, convIDs []uint64) ([]*Message, error) {
	if len(convIDs) == 0 {
		return nil, nil
	}

	filter := bson.M{"conversation_id": bson.M{"$in": convIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationRead 把会话内非本人发送的未读消息全部置为已读，返回被翻转的消息
// read 标志只允许 false -> true，这里的过滤条件天然保证单向性
func (s *messageRepoImpl) MarkConversationRead(ctx context.Context, convID uint64, readerID uint64) ([]*Message, error) {
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": readerID},
		"read":            false,
	}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var flipped []*Message
	if err := cursor.All(ctx, &flipped); err != nil {
		return nil, err
	}
	if len(flipped) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(flipped))
	for _, m := range flipped {
		oid, err := primitive.ObjectIDFromHex(m.ID)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}

	_, err = s.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return nil, err
	}

	for _, m := range flipped {
		m.Read = true
	}
	return flipped, nil
}

// CountUnread 统计指定会话集合中非本人发送且未读的消息数
func (s *messageRepoImpl) CountUnread(ctx context.Context, convIDs []uint64, readerID uint64) (int64, error) {
	if len(convIDs) == 0 {
		return 0, nil
	}

	filter := bson.M{
		"conversation_id": bson.M{"$in": convIDs},
		"sender_id":       bson.M{"$ne": readerID},
		"read":            false,
	}
	return s.col.CountDocuments(ctx, filter)
}
