package services

import "errors"

// Input errors. These surface to the caller unchanged; everything
// provider-side is retried down the fallback chain instead.
var (
	ErrEmptyDocument    = errors.New("no text content found in document")
	ErrCorruptDocument  = errors.New("document could not be parsed as PDF")
	ErrInsufficientText = errors.New("resume text is too short or empty")
)
