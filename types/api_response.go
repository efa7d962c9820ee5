package types

// SuccessResponse is the body returned on an accepted submission.
type SuccessResponse struct {
	Success string `json:"success"`
}

// ErrorResponse is the body returned on every rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports liveness of the service and its counter store.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Redis         string `json:"redis"`
}
