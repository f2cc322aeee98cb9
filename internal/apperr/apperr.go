// Package apperr 定义引擎内的类型化错误。
// 三类失败分层处理：
// - provider/传输失败在 llm 层转成 ProviderError，不会穿透到这里；
// - 判分/解析失败降级为 score=0，从不抛出；
// - 编排层失败（任务不存在、状态非法、请求非法）用本包的 Kind 标注，
//   handler 据此映射 HTTP 状态码，后台例程据此落 Task 的 failed note。
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindBadRequest
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound 资源不存在
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// InvalidState 操作与资源当前状态冲突（例如对终态任务投票/中断）
func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

// BadRequest 请求本身非法
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

// Internal 包装底层错误
func Internal(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 取错误类别，非本包错误按 Internal 处理
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsBadRequest(err error) bool   { return KindOf(err) == KindBadRequest }
