package api

// OptimizeResponse is returned on a completed dispatch.
type OptimizeResponse struct {
	Text         string       `json:"text"`
	TokensUsed   int          `json:"tokens_used"`
	RequestClass RequestClass `json:"request_class"`
}

// ProviderInfo is the read-only registry view exposed on the providers route.
// Credentials are referenced by the registry internally and never appear here.
type ProviderInfo struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	IsEnabled bool     `json:"is_enabled"`
	Priority  int      `json:"priority"`
	Models    []string `json:"models"`
}
