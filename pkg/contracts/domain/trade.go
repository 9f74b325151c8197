package domain

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO calendar date format used for trading days.
const DateLayout = "2006-01-02"

// Field widths of the persisted trade record.
const (
	OilIDLength           = 4
	DeliveryBasisIDLength = 3
	DeliveryTypeIDLength  = 1
	MinProductCodeLength  = 8

	MaxProductIDLength   = 100
	MaxProductNameLength = 300
	MaxBasisNameLength   = 200
)

// ErrInvalidProductCode is returned when an exchange product code is too short
// to carry the oil, basis and delivery type segments.
var ErrInvalidProductCode = errors.New("invalid exchange product code")

// ErrFieldTooLong is returned when a text field exceeds its column width.
var ErrFieldTooLong = errors.New("field too long")

// TradeRecord represents one instrument's trading outcome for a trading day
type TradeRecord struct {
	ID                  int64     `json:"id"`
	ExchangeProductID   string    `json:"exchange_product_id"`
	ExchangeProductName string    `json:"exchange_product_name"`
	OilID               string    `json:"oil_id"`
	DeliveryBasisID     string    `json:"delivery_basis_id"`
	DeliveryBasisName   string    `json:"delivery_basis_name"`
	DeliveryTypeID      string    `json:"delivery_type_id"`
	Volume              int64     `json:"volume"`
	Total               int64     `json:"total"`
	Count               int64     `json:"count"`
	Date                time.Time `json:"date"`
	CreatedOn           time.Time `json:"created_on"`
	UpdatedOn           time.Time `json:"updated_on"`
}

// ProductCodes holds the segments encoded in an exchange product code.
type ProductCodes struct {
	OilID           string
	DeliveryBasisID string
	DeliveryTypeID  string
}

// DeriveCodes splits an exchange product code such as "A100RFS030F" into
// oil id (first 4), delivery basis id (next 3) and delivery type id (last
// character). Lengths are counted in characters.
func DeriveCodes(productID string) (ProductCodes, error) {
	r := []rune(productID)
	if len(r) < MinProductCodeLength {
		return ProductCodes{}, fmt.Errorf("%w: %q", ErrInvalidProductCode, productID)
	}
	return ProductCodes{
		OilID:           string(r[:OilIDLength]),
		DeliveryBasisID: string(r[OilIDLength : OilIDLength+DeliveryBasisIDLength]),
		DeliveryTypeID:  string(r[len(r)-DeliveryTypeIDLength:]),
	}, nil
}

// NewTradeRecord builds a record from the raw row values of a results table,
// deriving the code segments from the product id. Text fields longer than
// their column width are rejected.
func NewTradeRecord(productID, productName, basisName string, volume, total, count int64, date time.Time) (TradeRecord, error) {
	codes, err := DeriveCodes(productID)
	if err != nil {
		return TradeRecord{}, err
	}
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"exchange_product_id", productID, MaxProductIDLength},
		{"exchange_product_name", productName, MaxProductNameLength},
		{"delivery_basis_name", basisName, MaxBasisNameLength},
	} {
		if n := utf8.RuneCountInString(f.value); n > f.max {
			return TradeRecord{}, fmt.Errorf("%w: %s has %d characters, max %d", ErrFieldTooLong, f.name, n, f.max)
		}
	}
	return TradeRecord{
		ExchangeProductID:   productID,
		ExchangeProductName: productName,
		OilID:               codes.OilID,
		DeliveryBasisID:     codes.DeliveryBasisID,
		DeliveryBasisName:   basisName,
		DeliveryTypeID:      codes.DeliveryTypeID,
		Volume:              volume,
		Total:               total,
		Count:               count,
		Date:                date,
	}, nil
}

// TradingDay truncates t to a calendar date in UTC.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseTradingDay parses an ISO date (YYYY-MM-DD).
func ParseTradingDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatTradingDay renders t as an ISO date.
func FormatTradingDay(t time.Time) string {
	return t.Format(DateLayout)
}
