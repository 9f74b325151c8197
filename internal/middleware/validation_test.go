package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "spimex/internal/errors"
)

type sampleRequest struct {
	Limit  int    `json:"limit" validate:"gt=0"`
	OilID  string `json:"oil_id,omitempty" validate:"omitempty,len=4"`
	Start  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Hidden string `json:"-"`
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateStruct(sampleRequest{Limit: 1, Start: "2023-06-01"}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := v.ValidateStruct(sampleRequest{Limit: 0, OilID: "A1", Start: "01.06.2023"})
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierrors.CodeValidationFailed, apiErr.ErrorCode)

		details, ok := apiErr.Details.(apierrors.ValidationErrors)
		require.True(t, ok)

		fields := map[string]string{}
		for _, e := range details.Errors {
			fields[e.Field] = e.Message
		}
		assert.Equal(t, "limit must be greater than 0", fields["limit"])
		assert.Equal(t, "oil_id must be exactly 4 characters", fields["oil_id"])
		assert.Equal(t, "start_date must be a date in YYYY-MM-DD format", fields["start_date"])
	})

	t.Run("missing required", func(t *testing.T) {
		err := v.ValidateStruct(sampleRequest{Limit: 3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}
