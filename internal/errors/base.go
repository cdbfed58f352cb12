package errors

import (
	"errors"
)

var (
	_ error = (*wrappedError)(nil)
)

func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Wrap(err error, text string) error {
	if err == nil {
		return nil
	}

	if len(text) == 0 {
		return err
	}

	return &wrappedError{
		err: err,
		msg: text,
	}
}

type wrappedError struct {
	err error
	msg string
}

const sep = ", err: "

func (err wrappedError) Error() string {
	if err.err == nil {
		return err.msg
	}

	return err.msg + sep + err.err.Error()
}

func (err wrappedError) Unwrap() error {
	if err.err == nil {
		return errors.New(err.msg)
	}

	return err.err
}

// Cause is one link of an error chain.
type Cause struct {
	Depth   int
	Message string
	Err     error
}

// Chain walks err cause-to-cause and returns every link, outermost first.
// Joined errors are walked depth first. Links whose message only repeats
// the text of their parent wrapper are still reported so the depth stays
// faithful to the chain.
func Chain(err error) []Cause {
	var out []Cause
	var walk func(e error, depth int)
	walk = func(e error, depth int) {
		for e != nil {
			out = append(out, Cause{Depth: depth, Message: e.Error(), Err: e})
			switch x := e.(type) {
			case interface{ Unwrap() []error }:
				for _, inner := range x.Unwrap() {
					walk(inner, depth+1)
				}
				return
			case interface{ Unwrap() error }:
				e = x.Unwrap()
				depth++
			default:
				return
			}
		}
	}
	walk(err, 0)
	return out
}

// Root returns the innermost cause of err.
func Root(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
