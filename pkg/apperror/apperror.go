// Package apperror 定义业务错误分类，由 HTTP 层统一映射为响应状态码
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	NotFound
	StorageFailure
	PayloadTooLarge
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case NotFound:
		return "not_found"
	case StorageFailure:
		return "storage_failure"
	case PayloadTooLarge:
		return "payload_too_large"
	default:
		return "internal"
	}
}

// Status 对应的HTTP状态码
func (k Kind) Status() int {
	switch k {
	case InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error 业务错误，Msg 可直接返回给调用方，Err 仅用于日志
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类别的 *Error 视为相等，便于 errors.Is(err, apperror.ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// 仅用于 errors.Is 比较的哨兵错误
var (
	ErrInvalidInput    = &Error{Kind: InvalidInput}
	ErrNotFound        = &Error{Kind: NotFound}
	ErrStorageFailure  = &Error{Kind: StorageFailure}
	ErrPayloadTooLarge = &Error{Kind: PayloadTooLarge}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Invalid(format string, args ...interface{}) *Error {
	return New(InvalidInput, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// KindOf 返回错误链中第一个 *Error 的类别，没有则为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message 返回可以暴露给调用方的信息，内部错误统一使用 fallback
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal && e.Kind != StorageFailure && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
