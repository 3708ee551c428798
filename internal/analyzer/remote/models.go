package remote

// DetectResponse is the upstream /detect payload
type DetectResponse struct {
	Status      string       `json:"status"`
	FacesCount  int          `json:"faces_count"`
	Faces       []RemoteFace `json:"faces"`
	ProcessTime float64      `json:"process_time"`
}

// RemoteFace is one detected face as reported upstream
type RemoteFace struct {
	BBox       []int     `json:"bbox"`
	Confidence float64   `json:"confidence"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// InfoResponse is the upstream /info payload
type InfoResponse struct {
	Status             string   `json:"status"`
	Version            string   `json:"version"`
	Backend            string   `json:"backend"`
	ActiveProvider     string   `json:"active_provider"`
	AvailableProviders []string `json:"available_providers"`
}
