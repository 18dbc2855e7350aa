package validation

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dispatch-system/pkg/errors"
)

type sample struct {
	Date     string      `json:"date" validate:"required,civil_date"`
	Start    string      `json:"start" validate:"required,time_of_day"`
	Priority string      `json:"priority" validate:"omitempty,priority"`
	Skills   []string    `json:"skills" validate:"skills"`
	Amount   string      `json:"amount" validate:"omitempty,decimal"`
	Currency null.String `json:"currency" validate:"omitempty,currency"`
}

func valid() sample {
	return sample{Date: "2025-06-02", Start: "09:00", Priority: "high", Skills: []string{"hvac"}, Amount: "12.50"}
}

func TestValidator_AcceptsValid(t *testing.T) {
	assert.NoError(t, New().Validate(valid()))

	s := valid()
	s.Currency = null.StringFrom("EUR")
	assert.NoError(t, New().Validate(s))
}

func TestValidator_ReturnsValidationErrorWithJSONField(t *testing.T) {
	cases := map[string]func(*sample){
		"date":     func(s *sample) { s.Date = "02.06.2025" },
		"start":    func(s *sample) { s.Start = "9am" },
		"priority": func(s *sample) { s.Priority = "critical" },
		"skills":   func(s *sample) { s.Skills = []string{"HVAC"} },
		"amount":   func(s *sample) { s.Amount = "-1" },
		"currency": func(s *sample) { s.Currency = null.StringFrom("euro") },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			s := valid()
			mutate(&s)
			err := New().Validate(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
		})
	}
}
