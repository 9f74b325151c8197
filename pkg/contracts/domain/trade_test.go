package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCodes(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		want      ProductCodes
		wantErr   bool
	}{
		{
			name:      "standard code",
			productID: "A100RFS030F",
			want:      ProductCodes{OilID: "A100", DeliveryBasisID: "RFS", DeliveryTypeID: "F"},
		},
		{
			name:      "minimum length",
			productID: "DTVBNVY1",
			want:      ProductCodes{OilID: "DTVB", DeliveryBasisID: "NVY", DeliveryTypeID: "1"},
		},
		{
			name:      "long code",
			productID: "A592UFM060W",
			want:      ProductCodes{OilID: "A592", DeliveryBasisID: "UFM", DeliveryTypeID: "W"},
		},
		{
			name:      "cyrillic code",
			productID: "А100ТРК030F",
			want:      ProductCodes{OilID: "А100", DeliveryBasisID: "ТРК", DeliveryTypeID: "F"},
		},
		{
			name:      "cyrillic minimum length",
			productID: "ДТЛЕНВЫЖ",
			want:      ProductCodes{OilID: "ДТЛЕ", DeliveryBasisID: "НВЫ", DeliveryTypeID: "Ж"},
		},
		{
			name:      "too short in characters",
			productID: "ДТЛЕНВЖ",
			wantErr:   true,
		},
		{
			name:      "too short",
			productID: "A100RF",
			wantErr:   true,
		},
		{
			name:      "empty",
			productID: "",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveCodes(tt.productID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProductCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTradeRecord(t *testing.T) {
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	rec, err := NewTradeRecord("A100RFS030F", "Бензин", "Рязань", 100, 5000, 5, day)
	require.NoError(t, err)

	assert.Equal(t, "A100", rec.OilID)
	assert.Equal(t, "RFS", rec.DeliveryBasisID)
	assert.Equal(t, "F", rec.DeliveryTypeID)
	assert.Equal(t, int64(100), rec.Volume)
	assert.Equal(t, int64(5000), rec.Total)
	assert.Equal(t, int64(5), rec.Count)
	assert.Equal(t, day, rec.Date)

	_, err = NewTradeRecord("A1", "x", "y", 1, 1, 1, day)
	assert.ErrorIs(t, err, ErrInvalidProductCode)
}

func TestNewTradeRecordFieldWidths(t *testing.T) {
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		productID   string
		productName string
		basisName   string
		wantErr     bool
	}{
		{"at limits", "A100RFS030F" + strings.Repeat("Я", 89), strings.Repeat("Б", 300), strings.Repeat("Р", 200), false},
		{"product id too long", "A100RFS030F" + strings.Repeat("9", 90), "x", "y", true},
		{"product name too long", "A100RFS030F", strings.Repeat("Б", 301), "y", true},
		{"basis name too long", "A100RFS030F", "x", strings.Repeat("Р", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTradeRecord(tt.productID, tt.productName, tt.basisName, 1, 1, 1, day)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFieldTooLong)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTradeFilterPredicates(t *testing.T) {
	assert.Empty(t, TradeFilter{}.Predicates())

	f := TradeFilter{
		OilID:           Some("A100"),
		DeliveryBasisID: Some("RFS"),
	}
	assert.Equal(t, []Predicate{
		{Field: FieldOilID, Value: "A100"},
		{Field: FieldDeliveryBasisID, Value: "RFS"},
	}, f.Predicates())
}

func TestTradeFilterMatches(t *testing.T) {
	rec := TradeRecord{OilID: "A100", DeliveryBasisID: "RFS", DeliveryTypeID: "F"}

	assert.True(t, TradeFilter{}.Matches(rec))
	assert.True(t, TradeFilter{OilID: Some("A100"), DeliveryTypeID: Some("F")}.Matches(rec))
	assert.False(t, TradeFilter{OilID: Some("A100"), DeliveryTypeID: Some("W")}.Matches(rec))
	assert.False(t, TradeFilter{DeliveryBasisID: Some("NVY")}.Matches(rec))
}

func TestOptionalString(t *testing.T) {
	assert.False(t, OptionalString("").IsSet())

	v, ok := OptionalString("A100").Get()
	assert.True(t, ok)
	assert.Equal(t, "A100", v)
	_, ok = None[string]().Get()
	assert.False(t, ok)
}

func TestDateRange(t *testing.T) {
	r := DateRange{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, r.Valid())
	assert.True(t, r.Contains(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2023, 1, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)))

	assert.False(t, DateRange{Start: r.End, End: r.Start}.Valid())
}

func TestTradingDayFormatting(t *testing.T) {
	d, err := ParseTradingDay("2023-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01", FormatTradingDay(d))

	_, err = ParseTradingDay("01.06.2023")
	assert.Error(t, err)
}
