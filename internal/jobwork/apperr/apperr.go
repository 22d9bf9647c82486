// Package apperr 定义核心业务错误分类。
// 调用方按 Kind/Code 匹配错误，而不是解析错误文本。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误大类
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindValidation       Kind = "VALIDATION"
	KindStateConflict    Kind = "STATE_CONFLICT"
	KindCapacityConflict Kind = "CAPACITY_CONFLICT"
	KindUnauthorized     Kind = "UNAUTHORIZED"
)

// Code 具体错误码
const (
	CodeNotFound                  = "NotFound"
	CodeTenantMismatch            = "TenantMismatch"
	CodeEmptyRoute                = "EmptyRoute"
	CodeInvalidOperationReference = "InvalidOperationReference"
	CodeInvalidTransition         = "InvalidTransition"
	CodePlanningRequired          = "PlanningRequired"
	CodeSequenceViolation         = "SequenceViolation"
	CodeQuantityExceedsJob        = "QuantityExceedsJob"
	CodeReworkNoteRequired        = "ReworkNoteRequired"
	CodeInvalidState              = "InvalidState"
	CodeForceRequired             = "ForceRequired"
	CodeInvalidDateRange          = "InvalidDateRange"
	CodeCapacityConflict          = "CapacityConflict"
	CodeOperationClosed           = "OperationClosed"
	CodeEmptyEntry                = "EmptyEntry"
	CodeExceedsJobQuantity        = "ExceedsJobQuantity"
	CodeValidation                = "ValidationError"
	CodeUnauthorized              = "Unauthorized"
)

// Error 携带分类信息的业务错误
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Clashes 容量冲突时返回的冲突工序ID列表
	Clashes []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New 创建业务错误
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Newf 创建带格式化消息的业务错误
func Newf(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound 实体不存在（含跨租户访问，二者对调用方不可区分）
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Validation 输入校验失败
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// StateConflict 状态冲突（非法转移、顺序违例、前置条件不满足）
func StateConflict(code, message string) *Error {
	return New(KindStateConflict, code, message)
}

// Capacity 机台班次容量冲突，附带冲突工序ID
func Capacity(message string, clashes []string) *Error {
	return &Error{Kind: KindCapacityConflict, Code: CodeCapacityConflict, Message: message, Clashes: clashes}
}

// KindOf 返回错误的大类，非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf 返回错误码，非业务错误返回空串
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ClashesOf 返回容量冲突的工序ID列表
func ClashesOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Clashes
	}
	return nil
}
