package es

import (
	"context"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

const MaxSearchDepth = 400

type RequestRepo interface {
	IndexRequest(ctx context.Context, req *RequestES) error
	DeleteRequest(ctx context.Context, id uint64) error
	SearchRequests(ctx context.Context, keyword string, status string, from, size int) ([]*RequestES, error)
}

type RequestRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewRequestRepo(client *elasticsearch.TypedClient) RequestRepo {
	return &RequestRepoImpl{client: client}
}

// IndexRequest 全量覆盖写入需求单文档
func (s *RequestRepoImpl) IndexRequest(ctx context.Context, req *RequestES) error {
	_, err := s.client.Index(RequestIndex).
		Id(strconv.FormatUint(req.ID, 10)).
		Document(req).
		Do(ctx)
	return err
}

// DeleteRequest 删除需求单文档，文档不存在视为成功
func (s *RequestRepoImpl) DeleteRequest(ctx context.Context, id uint64) error {
	res, err := s.client.Delete(RequestIndex, strconv.FormatUint(id, 10)).Do(ctx)
	if err != nil {
		return err
	}
	if res.Result.Name == "not_found" {
		return nil
	}
	return nil
}

// SearchRequests 关键词检索需求单，可按状态过滤，按创建时间倒序
func (s *RequestRepoImpl) SearchRequests(ctx context.Context, keyword string, status string, from, size int) ([]*RequestES, error) {
	if from >= MaxSearchDepth {
		return []*RequestES{}, nil
	}

	boolQuery := &types.BoolQuery{}

	if keyword != "" {
		boolQuery.Must = append(boolQuery.Must, types.Query{
			MultiMatch: &types.MultiMatchQuery{
				Query:  keyword,
				Fields: []string{"contact_name^2", "email^2", "service_type", "details"},
			},
		})
	}

	if status != "" {
		boolQuery.Filter = append(boolQuery.Filter, types.Query{
			Term: map[string]types.TermQuery{
				"status": {Value: status},
			},
		})
	}

	res, err := s.client.Search().
		Index(RequestIndex).
		Query(&types.Query{Bool: boolQuery}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"created_at": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*RequestES, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc RequestES
		if err := json.Unmarshal(hit.Source_, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode request document: %w", err)
		}
		results = append(results, &doc)
	}
	return results, nil
}
