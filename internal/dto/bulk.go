package dto

// BulkDeleteRequest captures POST /{entity}/bulk-delete payload.
type BulkDeleteRequest struct {
	IDs          []string `json:"ids" validate:"required,min=1,dive,required"`
	Confirmation string   `json:"confirmation" validate:"required"`
}

// BulkItemResult reports the outcome for one id.
type BulkItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BulkDeleteResponse tallies a bulk delete.
type BulkDeleteResponse struct {
	SuccessCount int              `json:"successCount"`
	ErrorCount   int              `json:"errorCount"`
	Results      []BulkItemResult `json:"results"`
}

// ImportRowError names a CSV line that was rejected.
type ImportRowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult tallies a CSV import.
type ImportResult struct {
	SuccessCount int              `json:"successCount"`
	ErrorCount   int              `json:"errorCount"`
	Errors       []ImportRowError `json:"errors"`
}
