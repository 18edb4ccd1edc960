package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/modhub/moderation-go/internal/config"
)

// Client Elasticsearch向量索引客户端
type Client struct {
	es         *elasticsearch.Client
	indexCache map[string]bool
	mu         sync.Mutex
}

// NewClient 创建向量索引客户端
func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses not configured")
	}

	esConfig := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	}
	es, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Client{
		es:         es,
		indexCache: make(map[string]bool),
	}, nil
}

// Ping 检查集群可达性
func (c *Client) Ping(ctx context.Context) error {
	req := esapi.PingRequest{}
	resp, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", resp.String())
	}
	return nil
}

// IndexExists 检查索引是否存在
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	req := esapi.IndicesExistsRequest{
		Index: []string{name},
	}
	resp, err := req.Do(ctx, c.es)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == 200, nil
}

// EnsureIndex 确保索引存在，不存在则按mapping创建。返回是否为本次新建
func (c *Client) EnsureIndex(ctx context.Context, name string, mapping map[string]interface{}) (bool, error) {
	c.mu.Lock()
	if c.indexCache[name] {
		c.mu.Unlock()
		return false, nil
	}
	c.mu.Unlock()

	exists, err := c.IndexExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		c.mu.Lock()
		c.indexCache[name] = true
		c.mu.Unlock()
		return false, nil
	}

	body, _ := json.Marshal(mapping)
	createReq := esapi.IndicesCreateRequest{
		Index: name,
		Body:  bytes.NewReader(body),
	}
	createResp, err := createReq.Do(ctx, c.es)
	if err != nil {
		return false, err
	}
	defer createResp.Body.Close()

	if createResp.IsError() {
		return false, fmt.Errorf("create index error: %s", createResp.String())
	}

	c.mu.Lock()
	c.indexCache[name] = true
	c.mu.Unlock()
	return true, nil
}

// Upsert 按文档ID写入，已存在则整体覆盖（last-write-wins）
func (c *Client) Upsert(ctx context.Context, index, id string, doc interface{}) (*UpsertResult, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}
	resp, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("index document error: %s", resp.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	kind, _ := result["result"].(string)
	return &UpsertResult{ID: id, Result: kind}, nil
}

// DocumentExists 检查文档是否存在
func (c *Client) DocumentExists(ctx context.Context, index, id string) (bool, error) {
	req := esapi.ExistsRequest{
		Index:      index,
		DocumentID: id,
	}
	resp, err := req.Do(ctx, c.es)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == 200, nil
}

// GetDocument 按ID读取文档_source，不存在时found为false
func (c *Client) GetDocument(ctx context.Context, index, id string) (map[string]interface{}, bool, error) {
	req := esapi.GetRequest{
		Index:      index,
		DocumentID: id,
	}
	resp, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, fmt.Errorf("get document error: %s", resp.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, err
	}

	source, _ := result["_source"].(map[string]interface{})
	return source, true, nil
}

// KnnSearch 近邻检索。_score即余弦相似度（dense_vector similarity=cosine）
func (c *Client) KnnSearch(ctx context.Context, q KnnQuery) (*KnnResult, error) {
	knn := map[string]interface{}{
		"field":          q.Field,
		"query_vector":   q.Vector,
		"k":              q.K,
		"num_candidates": q.NumCandidates,
	}
	if q.Filter != nil {
		knn["filter"] = q.Filter
	}

	body := map[string]interface{}{
		"knn":  knn,
		"size": q.K,
	}
	if len(q.SourceFields) > 0 {
		body["_source"] = q.SourceFields
	}

	payload, _ := json.Marshal(body)
	searchReq := esapi.SearchRequest{
		Index: []string{q.Index},
		Body:  bytes.NewReader(payload),
	}
	resp, err := searchReq.Do(ctx, c.es)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("knn search error: %s", resp.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	out := &KnnResult{}
	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return out, nil
	}
	rawHits, ok := hits["hits"].([]interface{})
	if !ok {
		return out, nil
	}

	out.Hits = make([]KnnHit, 0, len(rawHits))
	for _, raw := range rawHits {
		hit, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		score, _ := hit["_score"].(float64)
		id, _ := hit["_id"].(string)
		source, _ := hit["_source"].(map[string]interface{})
		out.Hits = append(out.Hits, KnnHit{ID: id, Score: score, Source: source})
	}

	return out, nil
}

// AggregateTerms 对keyword字段做terms聚合，返回值→数量桶
func (c *Client) AggregateTerms(ctx context.Context, index, field string, size int) ([]TermBucket, error) {
	if size <= 0 {
		size = 100
	}

	body := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"distinct_values": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": field,
					"size":  size,
				},
			},
		},
	}

	payload, _ := json.Marshal(body)
	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(payload),
	}
	resp, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("aggregate terms error: %s", resp.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	buckets := make([]TermBucket, 0)
	aggs, ok := result["aggregations"].(map[string]interface{})
	if !ok {
		return buckets, nil
	}
	distinct, ok := aggs["distinct_values"].(map[string]interface{})
	if !ok {
		return buckets, nil
	}
	rawBuckets, ok := distinct["buckets"].([]interface{})
	if !ok {
		return buckets, nil
	}

	for _, raw := range rawBuckets {
		bucket, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v", bucket["key"])
		count, _ := bucket["doc_count"].(float64)
		buckets = append(buckets, TermBucket{Value: key, Count: int64(count)})
	}

	return buckets, nil
}
