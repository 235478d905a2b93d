package chat

import "errors"

var (
	// ErrForbidden is returned when the caller is not in the event's attendee set.
	ErrForbidden = errors.New("not an event attendee")
	// ErrInvalidContent is returned for messages that are empty after trimming.
	ErrInvalidContent = errors.New("message content is empty")
	// ErrInvalidArgument is returned for negative pagination parameters.
	ErrInvalidArgument = errors.New("invalid pagination parameters")
	// ErrStoreTimeout is returned when the message store does not answer within
	// the bounded wait. Safe to retry on reads; writes must be resubmitted.
	ErrStoreTimeout = errors.New("message store timed out")
)
