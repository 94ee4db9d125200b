package service

import "fmt"

// Kind classifies a request failure.
type Kind int

const (
	// KindInvalidRequest covers bad input shape, unsupported modality, batch
	// size violations and malformed image encodings.
	KindInvalidRequest Kind = iota + 1
	// KindNotFound means the requested model id is not registered.
	KindNotFound
)

// Error is a request failure carrying a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can test against
// ErrModelNotFound and ErrInvalidRequest with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrModelNotFound  = &Error{Kind: KindNotFound, Message: "model not found"}
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
)

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Model '%s' not found", id)}
}
