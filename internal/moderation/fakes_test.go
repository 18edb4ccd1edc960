package moderation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modhub/moderation-go/internal/search"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// fakeEmbedder 返回预置单位向量的测试替身
type fakeEmbedder struct {
	vectors   map[string][]float32
	lastKind  EmbedKind
	failEmbed bool
	failOn    string
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: map[string][]float32{},
	}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, kind EmbedKind) ([]float32, error) {
	if f.failEmbed || (f.failOn != "" && text == f.failOn) {
		return nil, errors.New("model unavailable")
	}
	f.lastKind = kind
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int {
	return 3
}

func (f *fakeEmbedder) Ready() bool {
	return true
}

// fakeBackend 内存版SearchBackend，按文档ID覆盖写入
type fakeBackend struct {
	docs         map[string]map[string]interface{}
	ensured      map[string]bool
	knnHits      []search.KnnHit
	knnErr       error
	upsertErr    error
	lastKnnQuery search.KnnQuery
	termBuckets  []search.TermBucket
	aggErr       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		docs:    map[string]map[string]interface{}{},
		ensured: map[string]bool{},
	}
}

func (f *fakeBackend) key(index, id string) string {
	return index + "/" + id
}

func (f *fakeBackend) EnsureIndex(ctx context.Context, name string, mapping map[string]interface{}) (bool, error) {
	if f.ensured[name] {
		return false, nil
	}
	f.ensured[name] = true
	return true, nil
}

func (f *fakeBackend) Upsert(ctx context.Context, index, id string, doc interface{}) (*search.UpsertResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}

	result := "created"
	key := f.key(index, id)
	if _, exists := f.docs[key]; exists {
		result = "updated"
	}

	m, ok := doc.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected document type %T", doc)
	}
	f.docs[key] = m

	return &search.UpsertResult{ID: id, Result: result}, nil
}

func (f *fakeBackend) GetDocument(ctx context.Context, index, id string) (map[string]interface{}, bool, error) {
	doc, ok := f.docs[f.key(index, id)]
	return doc, ok, nil
}

func (f *fakeBackend) KnnSearch(ctx context.Context, q search.KnnQuery) (*search.KnnResult, error) {
	f.lastKnnQuery = q
	if f.knnErr != nil {
		return nil, f.knnErr
	}
	return &search.KnnResult{Hits: f.knnHits}, nil
}

func (f *fakeBackend) AggregateTerms(ctx context.Context, index, field string, size int) ([]search.TermBucket, error) {
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	return f.termBuckets, nil
}
