package embedding

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}

// Request/Response shapes shared by the HTTP providers.

type EmbeddingRequest struct {
	Model    string                  `json:"model"`
	Content  EmbeddingRequestContent `json:"content"`
	TaskType string                  `json:"taskType,omitempty"`
}

type EmbeddingRequestContent struct {
	Parts []EmbeddingRequestContentPart `json:"parts"`
}

type EmbeddingRequestContentPart struct {
	Text string `json:"text"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}
