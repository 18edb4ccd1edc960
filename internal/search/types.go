package search

// UpsertResult 文档写入结果
type UpsertResult struct {
	ID     string
	Result string // created | updated
}

// KnnQuery 向量近邻检索请求
type KnnQuery struct {
	Index         string
	Field         string
	Vector        []float32
	K             int
	NumCandidates int
	// Filter 在索引层过滤候选集（term/terms查询），保证top-k来自过滤后的子集
	Filter       map[string]interface{}
	SourceFields []string
}

// KnnHit 单条近邻命中，Score为余弦相似度（越高越相似）
type KnnHit struct {
	ID     string
	Score  float64
	Source map[string]interface{}
}

// KnnResult 近邻检索结果。空命中列表是正常结果，不是错误
type KnnResult struct {
	Hits []KnnHit
}

// TermBucket 字段值聚合桶
type TermBucket struct {
	Value string
	Count int64
}
