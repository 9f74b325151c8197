package http

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-playground/form/v4"

	apierrors "spimex/internal/errors"
	"spimex/internal/middleware"
)

// queryBinder decodes URL query parameters into request structs using
// their `query` tags and validates the result.
type queryBinder struct {
	decoder   *form.Decoder
	validator *middleware.Validator
}

func newQueryBinder(v *middleware.Validator) *queryBinder {
	d := form.NewDecoder()
	d.SetTagName("query")
	if v == nil {
		v = middleware.NewValidator()
	}
	return &queryBinder{decoder: d, validator: v}
}

// Bind fills dst from the request query. Fields absent from the query keep
// their current value.
func (b *queryBinder) Bind(r *http.Request, dst interface{}) error {
	if err := b.decoder.Decode(dst, r.URL.Query()); err != nil {
		return decodeError(err)
	}
	return b.validator.ValidateStruct(dst)
}

func decodeError(err error) error {
	var decodeErrs form.DecodeErrors
	if !errors.As(err, &decodeErrs) {
		return apierrors.ErrInvalidRequest
	}

	fields := make([]string, 0, len(decodeErrs))
	for field := range decodeErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]apierrors.ValidationError, 0, len(fields))
	for _, field := range fields {
		out = append(out, apierrors.ValidationError{
			Field:   field,
			Message: "has an invalid value",
		})
	}
	return apierrors.NewValidationErrors(out)
}
