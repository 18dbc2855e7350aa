// Package approval - общий автомат согласования для записей, требующих решения
// (время, расходы, материалы, отпуска).
package approval

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("неизвестный статус согласования %q", s)
}

var ErrIllegalTransition = errors.New("approval: недопустимый переход")

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("approval: переход %q -> %q недопустим", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// State - состояние согласования, которое встраивают записи.
type State struct {
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedBy *string    `json:"approved_by,omitempty"`
	DecidedAt *time.Time `json:"approved_at,omitempty"`
	Comment   *string    `json:"decision_comment,omitempty"`
}

func NewPending(at time.Time) State {
	return State{Status: StatusPending, CreatedAt: at}
}

// Machine - таблица допустимых переходов.
type Machine struct {
	edges map[Status][]Status
}

// CostEntries: pending -> approved | rejected, оба конечные.
var CostEntries = Machine{edges: map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}}

// Leaves дополнительно разрешает отмену уже согласованного отпуска.
var Leaves = Machine{edges: map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCancelled},
}}

func (m Machine) CanTransition(from, to Status) bool {
	for _, s := range m.edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Apply возвращает новое состояние; исходное не изменяется.
func (m Machine) Apply(s State, to Status, actor string, comment *string, at time.Time) (State, error) {
	if !m.CanTransition(s.Status, to) {
		return s, &TransitionError{From: s.Status, To: to}
	}
	next := s
	next.Status = to
	next.DecidedBy = &actor
	next.DecidedAt = &at
	if comment != nil {
		c := *comment
		next.Comment = &c
	}
	return next, nil
}
