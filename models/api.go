package models

// HealthCheckResponse is the health check response struct
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// ListResponse wraps a paged collection with its total count
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
