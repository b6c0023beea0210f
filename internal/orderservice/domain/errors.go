package domain

import "fmt"

// ErrCode names the error kinds from spec.md §7. The HTTP layer is the
// single place that maps these to status codes.
type ErrCode string

const (
	CodeValidation     ErrCode = "validation_error"
	CodeNotFound       ErrCode = "not_found"
	CodeInfrastructure ErrCode = "infrastructure_error"
)

type AppError struct {
	Code    ErrCode
	Message string
}

func (e *AppError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrValidation(msg string) error     { return &AppError{Code: CodeValidation, Message: msg} }
func ErrNotFound(msg string) error       { return &AppError{Code: CodeNotFound, Message: msg} }
func ErrInfrastructure(msg string) error { return &AppError{Code: CodeInfrastructure, Message: msg} }
