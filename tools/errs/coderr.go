package errs

import (
	"errors"
	"strconv"
	"strings"
)

// ===== 错误码 =====
//
// 业务层统一用 CodeError 携带机器可读错误码；
// socket ack / HTTP 响应靠 Code 区分“冲突可重试”与“失败”。
const (
	CodeInternal   = 1000 // 未知/内部错误
	CodeValidation = 1001 // 参数校验失败（不产生任何 I/O）
	CodeConflict   = 1002 // 存储写冲突，重试耗尽
	CodeNotFound   = 1003 // 条件更新未命中 / 目标不存在
	CodeStore      = 1004 // 存储连接类错误（不重试，等客户端重连后 resync）
)

var (
	ErrInternal   = NewCodeError(CodeInternal, "internal error")
	ErrValidation = NewCodeError(CodeValidation, "validation failed")
	ErrConflict   = NewCodeError(CodeConflict, "write conflict")
	ErrNotFound   = NewCodeError(CodeNotFound, "not found")
	ErrStore      = NewCodeError(CodeStore, "store unavailable")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail 返回带补充说明的副本，原错误不变（Is 仍按 Code 判定）。
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	return e.WithDetail(toString(msg, kv))
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Code 取出任意错误里的业务码；非 CodeError 一律按内部错误处理。
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

func New(msg string, kv ...any) error {
	return &CodeError{Code: CodeInternal, Msg: toString(msg, kv)}
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		sb.WriteString(" ")
		sb.WriteString(toStr(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(toStr(kv[i+1]))
		}
	}
	return sb.String()
}

func toStr(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return "?"
	}
}
