package backend

// QueryRequest is the body of POST /api/rag/query. Folder and Region are sent
// as JSON null when unset, never omitted.
type QueryRequest struct {
	Query  string  `json:"query"`
	Folder *string `json:"folder"`
	Region *string `json:"region"`
}

// QueryOptions are per-request retrieval overrides sent as query parameters.
// Nil fields fall back to the server defaults.
type QueryOptions struct {
	ChunkSize           *int     `json:"chunk_size,omitempty" validate:"omitempty,gte=100,lte=5000"`
	ChunkOverlap        *int     `json:"chunk_overlap,omitempty" validate:"omitempty,gte=0,lte=1000"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK                *int     `json:"top_k,omitempty" validate:"omitempty,gte=1,lte=20"`
}

// Chunk is one retrieved passage.
type Chunk struct {
	Content  string                 `json:"content"`
	Score    *float64               `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Filename returns metadata.filename, or "unknown" when the backend did not report one.
func (c Chunk) Filename() string {
	if name, ok := c.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	return "unknown"
}

type QueryResponse struct {
	Answer  string   `json:"answer"`
	Chunks  []Chunk  `json:"chunks"`
	Sources []string `json:"sources"`
}

type ChunkConfig struct {
	ChunkSize    int  `json:"chunk_size" validate:"gte=100,lte=5000"`
	ChunkOverlap int  `json:"chunk_overlap" validate:"gte=0,lte=1000"`
	ChunkByRow   bool `json:"chunk_by_row"`
}

type SimilarityConfig struct {
	SimilarityThreshold float64 `json:"similarity_threshold" validate:"gte=0,lte=1"`
	TopK                int     `json:"top_k" validate:"gte=1,lte=20"`
}

type WeightConfig struct {
	SimilarityWeight float64 `json:"similarity_weight" validate:"gte=0,lte=2"`
	RecencyWeight    float64 `json:"recency_weight" validate:"gte=0,lte=1"`
	SourceWeight     float64 `json:"source_weight" validate:"gte=0,lte=1"`
}

// DefaultChunkConfig mirrors the values the config form starts from.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{ChunkSize: 1000, ChunkOverlap: 200}
}

func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{SimilarityThreshold: 0.7, TopK: 5}
}

func DefaultWeightConfig() WeightConfig {
	return WeightConfig{SimilarityWeight: 1.0}
}

type EvaluationResult struct {
	Precision          float64  `json:"precision"`
	Recall             float64  `json:"recall"`
	F1Score            float64  `json:"f1_score"`
	ExpectedDocuments  []string `json:"expected_documents"`
	RetrievedDocuments []string `json:"retrieved_documents"`
	MatchedCount       int      `json:"matched_count"`
}

type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

type DocumentContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type ReloadResult struct {
	Message     string `json:"message"`
	LoadedCount int    `json:"loaded_count"`
}

type HealthStatus struct {
	Status string `json:"status"`
}

type textUpload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type folderList struct {
	Folders []string `json:"folders"`
}
