package domain

// ============================================================
// Health API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// OpsMetrics is returned by GET /v1/metrics/ops.
type OpsMetrics struct {
	TotalRequests  int64   `json:"totalRequests"`
	ErrorRate      float64 `json:"errorRate"`
	CacheHitRate   float64 `json:"cacheHitRate"`
	IncomeSynced   int64   `json:"incomeSynced"`
	StoreErrors    int64   `json:"storeErrors"`
	SearchRequests int64   `json:"searchRequests"`
	Period         string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}
