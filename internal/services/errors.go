package services

import (
	"errors"

	"spimex/internal/storage"
)

var (
	// ErrInvalidLimit is returned when fewer than one trading date is requested.
	ErrInvalidLimit = storage.ErrInvalidLimit
	// ErrInvalidDateRange is returned when a range starts after it ends.
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	// ErrOilIDRequired is returned by GetTradingResults without an oil filter.
	ErrOilIDRequired = storage.ErrOilIDRequired
)
