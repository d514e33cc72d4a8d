package chat

import "errors"

// Error taxonomy for the conversation pipeline. Authorization and validation
// errors surface immediately with no retry; generation failures keep the
// user's message (partial success); storage failures during preview update
// are logged and swallowed, everywhere else they are fatal.
var (
	ErrNotOwner         = errors.New("conversation does not belong to user")
	ErrNotFound         = errors.New("not found")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrQuotaExceeded    = errors.New("daily generation quota exceeded")
	ErrGenerationFailed = errors.New("assistant generation failed")
)
