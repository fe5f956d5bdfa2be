package httpapi

// #region schemas

// HealthResponse reports which artifacts loaded.
type HealthResponse struct {
	Status         string   `json:"status"` // "ok" | "degraded"
	ModelsLoaded   []string `json:"models_loaded"`
	RagIndexLoaded bool     `json:"rag_index_loaded"`
}

// ChatRequest is one chat message. An empty session id starts a session.
type ChatRequest struct {
	Message    string         `json:"message" validate:"max=8000"`
	SessionID  string         `json:"session_id,omitempty" validate:"omitempty,max=128,printascii"`
	MergeState map[string]any `json:"merge_state,omitempty" validate:"omitempty,max=64"`
}

// ChatResponse carries the reply and the session it belongs to.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// ParseEdDocumentRequest is the JSON form of a document to parse.
type ParseEdDocumentRequest struct {
	Text string `json:"text" validate:"required"`
}

// ParseEdDocumentResponse holds the parsed fields and a readable summary.
type ParseEdDocumentResponse struct {
	Parsed  map[string]float64 `json:"parsed"`
	Summary string             `json:"summary"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// #endregion schemas
