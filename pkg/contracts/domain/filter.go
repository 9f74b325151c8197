package domain

import "time"

// Optional is a value that may be absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// OptionalString returns None for an empty string and Some otherwise.
// Query parameters use the empty string for "not given".
func OptionalString(s string) Optional[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// TradeFilter narrows trade record queries. Absent fields add no predicate.
type TradeFilter struct {
	OilID           Optional[string]
	DeliveryTypeID  Optional[string]
	DeliveryBasisID Optional[string]
}

// FilterField names a filterable column.
type FilterField string

const (
	FieldOilID           FilterField = "oil_id"
	FieldDeliveryTypeID  FilterField = "delivery_type_id"
	FieldDeliveryBasisID FilterField = "delivery_basis_id"
)

// Predicate is one present filter value.
type Predicate struct {
	Field FilterField
	Value string
}

// Predicates returns the present filters in a stable order.
func (f TradeFilter) Predicates() []Predicate {
	fields := []struct {
		name FilterField
		opt  Optional[string]
	}{
		{FieldOilID, f.OilID},
		{FieldDeliveryTypeID, f.DeliveryTypeID},
		{FieldDeliveryBasisID, f.DeliveryBasisID},
	}

	preds := make([]Predicate, 0, len(fields))
	for _, fld := range fields {
		if v, ok := fld.opt.Get(); ok {
			preds = append(preds, Predicate{Field: fld.name, Value: v})
		}
	}
	return preds
}

// Matches reports whether r satisfies every present filter.
func (f TradeFilter) Matches(r TradeRecord) bool {
	for _, p := range f.Predicates() {
		var got string
		switch p.Field {
		case FieldOilID:
			got = r.OilID
		case FieldDeliveryTypeID:
			got = r.DeliveryTypeID
		case FieldDeliveryBasisID:
			got = r.DeliveryBasisID
		}
		if got != p.Value {
			return false
		}
	}
	return true
}

// DateRange is an inclusive range of trading days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the trading day of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := TradingDay(t)
	return !d.Before(TradingDay(r.Start)) && !d.After(TradingDay(r.End))
}

// Valid reports whether Start is not after End.
func (r DateRange) Valid() bool {
	return !TradingDay(r.Start).After(TradingDay(r.End))
}
