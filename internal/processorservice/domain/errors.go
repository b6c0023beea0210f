package domain

import "fmt"

type ErrCode string

const (
	CodeValidation     ErrCode = "validation_error"
	CodeInfrastructure ErrCode = "infrastructure_error"
)

type AppError struct {
	Code    ErrCode
	Message string
}

func (e *AppError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrValidation(msg string) error     { return &AppError{Code: CodeValidation, Message: msg} }
func ErrInfrastructure(msg string) error { return &AppError{Code: CodeInfrastructure, Message: msg} }
