// Package api contains the request and response contracts of the trading
// results API. Version v1 is the current stable API version.
package api

import (
	"spimex/pkg/contracts/domain"
)

// DefaultLastDatesLimit is used when get_last_trading_dates gets no limit.
const DefaultLastDatesLimit = 10

// LastTradingDatesRequest asks for the most recent distinct trading days.
type LastTradingDatesRequest struct {
	Limit int `json:"limit" query:"limit" validate:"gt=0"`
}

// FilterParams are the optional instrument filters shared by the queries.
type FilterParams struct {
	OilID           string `json:"oil_id,omitempty" query:"oil_id" validate:"omitempty,len=4"`
	DeliveryTypeID  string `json:"delivery_type_id,omitempty" query:"delivery_type_id" validate:"omitempty,len=1"`
	DeliveryBasisID string `json:"delivery_basis_id,omitempty" query:"delivery_basis_id" validate:"omitempty,len=3"`
}

// ToFilter folds the present parameters into a domain filter.
func (p FilterParams) ToFilter() domain.TradeFilter {
	return domain.TradeFilter{
		OilID:           domain.OptionalString(p.OilID),
		DeliveryTypeID:  domain.OptionalString(p.DeliveryTypeID),
		DeliveryBasisID: domain.OptionalString(p.DeliveryBasisID),
	}
}

// DynamicsRequest asks for records within an inclusive date range.
type DynamicsRequest struct {
	FilterParams
	StartDate string `json:"start_date" query:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" query:"end_date" validate:"required,datetime=2006-01-02"`
}

// DateRange parses the validated bounds.
func (r DynamicsRequest) DateRange() (domain.DateRange, error) {
	start, err := domain.ParseTradingDay(r.StartDate)
	if err != nil {
		return domain.DateRange{}, err
	}
	end, err := domain.ParseTradingDay(r.EndDate)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{Start: start, End: end}, nil
}

// TradingResultsRequest asks for the records of the latest trading day.
// OilID is mandatory here.
type TradingResultsRequest struct {
	OilID           string `json:"oil_id" query:"oil_id" validate:"required,len=4"`
	DeliveryTypeID  string `json:"delivery_type_id,omitempty" query:"delivery_type_id" validate:"omitempty,len=1"`
	DeliveryBasisID string `json:"delivery_basis_id,omitempty" query:"delivery_basis_id" validate:"omitempty,len=3"`
}

// ToFilter folds the parameters into a domain filter.
func (r TradingResultsRequest) ToFilter() domain.TradeFilter {
	return FilterParams{
		OilID:           r.OilID,
		DeliveryTypeID:  r.DeliveryTypeID,
		DeliveryBasisID: r.DeliveryBasisID,
	}.ToFilter()
}
