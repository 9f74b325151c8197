package api

import (
	"time"

	"spimex/pkg/contracts"
	"spimex/pkg/contracts/domain"
)

// StatusSuccess is the status of every successful envelope.
const StatusSuccess = "success"

// Envelope wraps every successful response body.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  int         `json:"count"`
}

// NewEnvelope wraps data with its item count.
func NewEnvelope(data interface{}, count int) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Count: count}
}

// TradingResult is the wire form of a trade record. Dates are YYYY-MM-DD.
type TradingResult struct {
	ID                  int64  `json:"id"`
	ExchangeProductID   string `json:"exchange_product_id"`
	ExchangeProductName string `json:"exchange_product_name"`
	OilID               string `json:"oil_id"`
	DeliveryBasisID     string `json:"delivery_basis_id"`
	DeliveryBasisName   string `json:"delivery_basis_name"`
	DeliveryTypeID      string `json:"delivery_type_id"`
	Volume              int64  `json:"volume"`
	Total               int64  `json:"total"`
	Count               int64  `json:"count"`
	Date                string `json:"date"`
	CreatedOn           string `json:"created_on,omitempty"`
	UpdatedOn           string `json:"updated_on,omitempty"`
}

// NewTradingResult converts a stored record.
func NewTradingResult(r domain.TradeRecord) TradingResult {
	return TradingResult{
		ID:                  r.ID,
		ExchangeProductID:   r.ExchangeProductID,
		ExchangeProductName: r.ExchangeProductName,
		OilID:               r.OilID,
		DeliveryBasisID:     r.DeliveryBasisID,
		DeliveryBasisName:   r.DeliveryBasisName,
		DeliveryTypeID:      r.DeliveryTypeID,
		Volume:              r.Volume,
		Total:               r.Total,
		Count:               r.Count,
		Date:                domain.FormatTradingDay(r.Date),
		CreatedOn:           formatOptionalDay(r.CreatedOn),
		UpdatedOn:           formatOptionalDay(r.UpdatedOn),
	}
}

// NewTradingResults converts a slice of records, never returning nil.
func NewTradingResults(records []domain.TradeRecord) []TradingResult {
	out := make([]TradingResult, 0, len(records))
	for _, r := range records {
		out = append(out, NewTradingResult(r))
	}
	return out
}

func formatOptionalDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.FormatTradingDay(t)
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionResponse describes the running build.
type VersionResponse struct {
	Name string `json:"name"`
	contracts.BuildInfo
}
