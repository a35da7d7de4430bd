package jobclient

import "github.com/pkg/errors"

// Result carries either Data or Error, never both. Client methods return a
// Result instead of a Go error so callers can hand it straight to a view.
type Result[T any] struct {
	Data  *T
	Error string
}

func (r Result[T]) OK() bool {
	return r.Error == "" && r.Data != nil
}

// Err converts the error string back into an error, or nil.
func (r Result[T]) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

func okResult[T any](v *T) Result[T] {
	return Result[T]{Data: v}
}

func fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Result[T]{Error: err.Error()}
}
