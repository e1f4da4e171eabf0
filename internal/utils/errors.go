package utils

// kindError places an error in a category. The category matches with both the standard
// library's errors.Is and cockroachdb's, while the message stays that of the cause.
type kindError struct {
	cause error
	kind  error
}

// WithKind returns err categorized as kind, or nil when err is nil
func WithKind(err error, kind error) error {
	if err == nil {
		return nil
	}
	return &kindError{cause: err, kind: kind}
}

func (e *kindError) Error() string { return e.cause.Error() }
func (e *kindError) Unwrap() error { return e.cause }
func (e *kindError) Is(target error) bool {
	return target == e.kind
}
