package models

// SupportResource is one entry of the support directory (hotline, website,
// reporting service)
type SupportResource struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Number      string `json:"number,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description"`
	Available   string `json:"available"`
}

// Statistics is the dashboard read-model shape
type Statistics struct {
	TotalReports int64            `json:"totalReports"`
	ByStatus     map[string]int64 `json:"byStatus"`
	BySeverity   map[string]int64 `json:"bySeverity"`
	ByType       map[string]int64 `json:"byType"`
	DailyCounts  []DailyCount     `json:"dailyCounts"`
}

// DailyCount is one day of submission volume
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
