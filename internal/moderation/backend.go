package moderation

import (
	"context"

	"github.com/modhub/moderation-go/internal/search"
)

// SearchBackend 向量索引服务抽象，由internal/search的Elasticsearch客户端实现
type SearchBackend interface {
	EnsureIndex(ctx context.Context, name string, mapping map[string]interface{}) (bool, error)
	Upsert(ctx context.Context, index, id string, doc interface{}) (*search.UpsertResult, error)
	GetDocument(ctx context.Context, index, id string) (map[string]interface{}, bool, error)
	KnnSearch(ctx context.Context, q search.KnnQuery) (*search.KnnResult, error)
	AggregateTerms(ctx context.Context, index, field string, size int) ([]search.TermBucket, error)
}
