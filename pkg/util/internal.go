package util

import "fmt"

// InternalError is a broken invariant inside the compiler itself. It aborts
// the whole compilation.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return "internal error: " + e.Op + ": " + e.Err.Error() }
func (e *InternalError) Unwrap() error { return e.Err }

// Internal panics with an *InternalError wrapping err.
func Internal(op string, err error) {
	panic(&InternalError{Op: op, Err: err})
}

func Internalf(op, format string, args ...any) {
	panic(&InternalError{Op: op, Err: fmt.Errorf(format, args...)})
}

// RecoverInternal turns an *InternalError panic into *errp. Any other panic
// is re-raised. Use it as a deferred call.
func RecoverInternal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InternalError); ok {
		*errp = ie
		return
	}
	if err, ok := r.(error); ok {
		*errp = &InternalError{Op: "panic", Err: err}
		return
	}
	panic(r)
}
