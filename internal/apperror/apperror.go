package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
)

// Коды, которые клиент получает в extensions.code.
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL"
)

type AppError struct {
	Err     error  // вид ошибки
	Message string // сообщение для клиента
	Field   string // поле, вызвавшее ошибку (необязательно)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Extensions попадает в список ошибок GraphQL-ответа.
func (e *AppError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": Code(e)}
	if e.Field != "" {
		ext["field"] = e.Field
	}
	return ext
}

func AuthRequired(operation string) *AppError {
	return &AppError{
		Err:     ErrAuthRequired,
		Message: fmt.Sprintf("%s requires an authenticated user", operation),
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Code возвращает код ошибки для клиента.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return CodeAuthRequired
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrValidation):
		return CodeValidation
	default:
		return CodeInternal
	}
}
