// Error kinds reported per image and per batch
package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the batch report
type ErrorKind string

const (
	KindDecode     ErrorKind = "decode"
	KindRender     ErrorKind = "render"
	KindIO         ErrorKind = "io"
	KindProcessing ErrorKind = "processing"
)

// Sentinels for errors.Is checks against *Error values
var (
	ErrDecode     = errors.New("decode error")
	ErrRender     = errors.New("render error")
	ErrIO         = errors.New("io error")
	ErrProcessing = errors.New("processing error")
)

// Error carries a kind, the operation that failed and the cause
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the same kind
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindRender:
		return ErrRender
	case KindIO:
		return ErrIO
	default:
		return ErrProcessing
	}
}

func DecodeError(op string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

func RenderError(op string, err error) error {
	return &Error{Kind: KindRender, Op: op, Err: err}
}

func IOError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func ProcessingError(op string, err error) error {
	return &Error{Kind: KindProcessing, Op: op, Err: err}
}

// KindOf reports the kind of err, defaulting to processing for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProcessing
}
