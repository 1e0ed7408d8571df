package domain

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("resource not found")
	ErrMalformedEvent   = errors.New("malformed event")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidWeights   = errors.New("invalid score weights")
	ErrInvalidPeriodKey = errors.New("invalid period key")
	ErrDuplicateEvent   = errors.New("duplicate event")
	ErrJobNotFound      = errors.New("job not found")
)
