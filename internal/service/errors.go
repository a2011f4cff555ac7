package service

import (
	"errors"
	"fmt"

	"carezone/internal/repository"
)

// 服务层错误分类，调用方通过 errors.Is 判断
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrChannel      = errors.New("notification channel failed")
	ErrPrecondition = errors.New("precondition failed")
)

// ErrorKind 错误分类名称（用于响应体与日志）
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrChannel):
		return "channel"
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	default:
		return "internal"
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookupError 将 repository.ErrNotFound 映射为 ErrNotFound，其余错误原样包装
func lookupError(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
