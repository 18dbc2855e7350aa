package validation

import (
	"reflect"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"dispatch-system/pkg/types"
)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"time_of_day": isTimeOfDay,
		"civil_date":  isCivilDate,
		"priority":    isPriority,
		"skills":      isSkillSet,
		"decimal":     isNonNegativeDecimal,
		"currency":    isCurrency,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func isTimeOfDay(fl validator.FieldLevel) bool {
	_, err := types.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func isCivilDate(fl validator.FieldLevel) bool {
	_, err := civil.ParseDate(fl.Field().String())
	return err == nil
}

// isPriority дублирует перечень entities.Priority: pkg не зависит от internal.
func isPriority(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "low", "medium", "high", "urgent":
		return true
	}
	return false
}

func isSkillSet(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < field.Len(); i++ {
		s := field.Index(i).String()
		if strings.TrimSpace(s) == "" || s != strings.ToLower(s) {
			return false
		}
	}
	return true
}

func isNonNegativeDecimal(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && !d.IsNegative()
}

func isCurrency(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(fl.Field().String())
}

func jsonTagName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
