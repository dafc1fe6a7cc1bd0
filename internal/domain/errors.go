package domain

import "errors"

var (
	// ErrFileNotFound is returned when a source CSV does not exist.
	ErrFileNotFound = errors.New("source file not found")

	// ErrDataFormat is returned for a missing column, a malformed row, or a
	// field that is neither numeric nor the "NA" sentinel.
	ErrDataFormat = errors.New("invalid data format")

	// ErrEmptyDataset is returned when shares or averages are requested for a
	// dataset with no valid records.
	ErrEmptyDataset = errors.New("dataset has no valid records")
)
