package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "dispatch-system/pkg/errors"
)

// CustomValidator - обертка для использования в Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate реализует интерфейс echo.Validator. Ошибки приводятся к ValidationError.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fieldName(fe), "%s", describe(fe))
	}
	return apperrors.NewValidationError("", "%s", err.Error())
}

// New создает и настраивает валидатор
func New() *CustomValidator {
	v := validator.New()

	v.RegisterTagNameFunc(jsonTagName)

	// 1. Подключаем поддержку null-типов (из файла types_adapter.go)
	registerNullTypes(v)

	// 2. Регистрируем кастомные правила (из файла rules.go)
	// Если правило критично и не зарегистрировалось, паникуем, так как сервер не должен стартовать
	if err := registerRules(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}

	return &CustomValidator{validator: v}
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min", "gte":
		return fmt.Sprintf("значение должно быть не меньше %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("значение должно быть не больше %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("допустимые значения: %s", fe.Param())
	case "time_of_day":
		return "ожидается время в формате HH:MM"
	case "civil_date":
		return "ожидается дата в формате YYYY-MM-DD"
	case "priority":
		return "допустимые приоритеты: low, medium, high, urgent"
	case "skills":
		return "навыки - непустые строки в нижнем регистре"
	case "decimal":
		return "ожидается неотрицательное десятичное число"
	case "currency":
		return "ожидается код валюты ISO 4217"
	}
	return fmt.Sprintf("не прошло проверку %q", fe.Tag())
}
