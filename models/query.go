package models

// QueryRequest asks a question against one document (or all of the user's
// documents when DocumentID is empty).
type QueryRequest struct {
	Question   string `json:"question" binding:"required,min=1,max=2000"`
	DocumentID string `json:"document_id,omitempty" binding:"omitempty,hexadecimal,len=24"`
	TopK       int    `json:"top_k,omitempty" binding:"omitempty,min=1,max=20"`
}

// QueryResponse carries the generated answer plus the chunks it was
// grounded on.
type QueryResponse struct {
	Answer  string           `json:"answer"`
	Sources []RetrievedChunk `json:"sources"`
}
