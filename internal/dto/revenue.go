package dto

import "github.com/noah-isme/tutor-center-api/internal/billing"

// RevenueResponse wraps the revenue dashboard with the filter that produced it.
type RevenueResponse struct {
	Year   int   `json:"year,omitempty"`
	Months []int `json:"months,omitempty"`
	billing.Revenue
}
