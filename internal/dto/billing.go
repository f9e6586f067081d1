package dto

import "github.com/noah-isme/tutor-center-api/internal/billing"

// StudentBillingResponse is the monthly student billing table.
type StudentBillingResponse struct {
	Month       string               `json:"month"`
	Rows        []billing.StudentRow `json:"rows"`
	TotalAmount float64              `json:"totalAmount"`
	ClassCount  int                  `json:"classCount"`
}

// TeacherBillingResponse is the monthly teacher payout table.
type TeacherBillingResponse struct {
	Month       string               `json:"month"`
	Rows        []billing.TeacherRow `json:"rows"`
	TotalAmount float64              `json:"totalAmount"`
	ClassCount  int                  `json:"classCount"`
}

// BillingQuery captures the query string of billing endpoints.
type BillingQuery struct {
	Month string `form:"month" validate:"required"`
	Sort  string `form:"sort" validate:"omitempty,oneof=totalAmount classCount id"`
	Order string `form:"order" validate:"omitempty,oneof=asc desc"`
}
