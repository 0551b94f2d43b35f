package models

import "time"

// AnalysisSummary is one row of the analysis listing.
type AnalysisSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Stacks    int       `json:"stacks"`
	Measures  int       `json:"measures"`
	Abnormal  bool      `json:"abnormal"`
	CreatedAt time.Time `json:"created_at"`
}
