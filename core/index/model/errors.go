package model

import (
	"fmt"
)

// index/CorruptIndexException.java

/*
Returned when the index is found to be inconsistent, or when the
postings handed to a writer break its ordering rules.
*/
type CorruptIndexError struct {
	Message             string
	ResourceDescription string
	Cause               error
}

func NewCorruptIndexError(resource interface{}, msg string, args ...interface{}) *CorruptIndexError {
	desc := "null"
	if resource != nil {
		desc = fmt.Sprintf("%v", resource)
	}
	return &CorruptIndexError{Message: fmt.Sprintf(msg, args...), ResourceDescription: desc}
}

func (err *CorruptIndexError) Error() string {
	if err.Cause != nil {
		return fmt.Sprintf("%v (resource=%v): %v", err.Message, err.ResourceDescription, err.Cause)
	}
	return fmt.Sprintf("%v (resource=%v)", err.Message, err.ResourceDescription)
}

func (err *CorruptIndexError) Unwrap() error { return err.Cause }

// index/IndexFormatTooOldException.java

// Returned when a header version is older than this code can read.
type IndexFormatTooOldError struct {
	ResourceDescription string
	Version             int32
	MinVersion          int32
	MaxVersion          int32
}

func NewIndexFormatTooOldError(resource interface{}, version, minVersion, maxVersion int32) *IndexFormatTooOldError {
	return &IndexFormatTooOldError{fmt.Sprintf("%v", resource), version, minVersion, maxVersion}
}

func (err *IndexFormatTooOldError) Error() string {
	return fmt.Sprintf(
		"Format version is not supported (resource %v): %v (needs to be between %v and %v). This version only supports indexes created with the same major release.",
		err.ResourceDescription, err.Version, err.MinVersion, err.MaxVersion)
}

// index/IndexFormatTooNewException.java

// Returned when a header version is newer than this code can read.
type IndexFormatTooNewError struct {
	ResourceDescription string
	Version             int32
	MinVersion          int32
	MaxVersion          int32
}

func NewIndexFormatTooNewError(resource interface{}, version, minVersion, maxVersion int32) *IndexFormatTooNewError {
	return &IndexFormatTooNewError{fmt.Sprintf("%v", resource), version, minVersion, maxVersion}
}

func (err *IndexFormatTooNewError) Error() string {
	return fmt.Sprintf(
		"Format version is not supported (resource %v): %v (needs to be between %v and %v)",
		err.ResourceDescription, err.Version, err.MinVersion, err.MaxVersion)
}
