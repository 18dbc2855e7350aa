package errors

import (
	"fmt"
	"strings"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenNotYetValid     = fmt.Errorf("токен ещё не активен")
	ErrTokenIsNotAccess     = fmt.Errorf("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")
	ErrForbidden         = fmt.Errorf("доступ запрещён")

	// Контекст
	ErrActorNotFoundInContext = fmt.Errorf("актор не найден в контексте запроса")
)

// Сентинелы для errors.Is. Конкретные типы ниже сопоставляются с ними через метод Is.
var (
	ErrValidation        = fmt.Errorf("ошибка валидации")
	ErrConflict          = fmt.Errorf("конфликт данных")
	ErrInvalidTransition = fmt.Errorf("недопустимый переход состояния")
	ErrEligibility       = fmt.Errorf("техник не подходит для назначения")
	ErrNotFound          = fmt.Errorf("запись не найдена")
	ErrStorage           = fmt.Errorf("ошибка хранилища")
)

// ValidationError - некорректный или выходящий за границы ввод. Повторять без исправления бессмысленно.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError - нарушение уникальности.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s с %s=%q уже существует", e.Entity, e.Field, e.Value)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func NewConflictError(entity, field, value string) error {
	return &ConflictError{Entity: entity, Field: field, Value: value}
}

// InvalidTransitionError - машина состояний отклонила переход из текущего состояния.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: переход %q -> %q недопустим", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func NewInvalidTransitionError(entity, id, from, to string) error {
	return &InvalidTransitionError{Entity: entity, ID: id, From: from, To: to}
}

// EligibilityReason - причина, по которой техник не прошёл проверку.
type EligibilityReason string

const (
	ReasonSkillMismatch EligibilityReason = "skill_mismatch"
	ReasonUnavailable   EligibilityReason = "unavailable"
	ReasonOnLeave       EligibilityReason = "on_leave"
	ReasonOverCapacity  EligibilityReason = "over_capacity"
	ReasonUnknown       EligibilityReason = "unknown_technician"
	ReasonNoCandidates  EligibilityReason = "no_eligible_candidate"
)

type EligibilityFailure struct {
	TechnicianID string            `json:"technician_id,omitempty"`
	Reason       EligibilityReason `json:"reason"`
	Detail       string            `json:"detail,omitempty"`
}

// EligibilityError - один или несколько запрошенных техников не прошли проверку.
type EligibilityError struct {
	DispatchID string
	Failures   []EligibilityFailure
}

func (e *EligibilityError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("dispatch %s: нет подходящих техников", e.DispatchID)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.TechnicianID == "" {
			parts = append(parts, string(f.Reason))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", f.TechnicianID, f.Reason))
	}
	return fmt.Sprintf("dispatch %s: техник не подходит: %s", e.DispatchID, strings.Join(parts, ", "))
}

func (e *EligibilityError) Is(target error) bool { return target == ErrEligibility }

func NewEligibilityError(dispatchID string, failures ...EligibilityFailure) error {
	return &EligibilityError{DispatchID: dispatchID, Failures: failures}
}

// NotFoundError - сущность отсутствует или мягко удалена.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s не найден(а)", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// StorageError - сбой хранилища. Можно повторять с backoff.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("хранилище: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// HttpError - ошибка с уже выбранным HTTP-кодом и сообщением для пользователя.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}
