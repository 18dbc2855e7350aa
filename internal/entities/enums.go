package entities

import "fmt"

type DispatchStatus string

const (
	DispatchPending    DispatchStatus = "pending"
	DispatchAssigned   DispatchStatus = "assigned"
	DispatchInProgress DispatchStatus = "in_progress"
	DispatchCompleted  DispatchStatus = "completed"
	DispatchCancelled  DispatchStatus = "cancelled"
)

func ParseDispatchStatus(s string) (DispatchStatus, error) {
	switch st := DispatchStatus(s); st {
	case DispatchPending, DispatchAssigned, DispatchInProgress, DispatchCompleted, DispatchCancelled:
		return st, nil
	}
	return "", fmt.Errorf("неизвестный статус выезда %q", s)
}

// dispatchTransitions - все допустимые переходы. assigned -> assigned это повторное назначение.
var dispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchPending:    {DispatchAssigned, DispatchCancelled},
	DispatchAssigned:   {DispatchAssigned, DispatchInProgress, DispatchCancelled},
	DispatchInProgress: {DispatchCompleted, DispatchCancelled},
}

func (s DispatchStatus) CanTransitionTo(to DispatchStatus) bool {
	for _, next := range dispatchTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s DispatchStatus) IsTerminal() bool {
	return s == DispatchCompleted || s == DispatchCancelled
}

// IsActive - выезд занимает техника (учитывается в нагрузке и двойном бронировании).
func (s DispatchStatus) IsActive() bool {
	return s == DispatchAssigned || s == DispatchInProgress
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("неизвестный приоритет %q", s)
}

// Rank задает порядок low < medium < high < urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

type HistoryAction string

const (
	ActionCreated       HistoryAction = "created"
	ActionAssigned      HistoryAction = "assigned"
	ActionRescheduled   HistoryAction = "rescheduled"
	ActionReassigned    HistoryAction = "reassigned"
	ActionStatusChanged HistoryAction = "status_changed"
	ActionUpdated       HistoryAction = "updated"
	ActionCancelled     HistoryAction = "cancelled"
	ActionDeleted       HistoryAction = "deleted"
)

func ParseHistoryAction(s string) (HistoryAction, error) {
	switch a := HistoryAction(s); a {
	case ActionCreated, ActionAssigned, ActionRescheduled, ActionReassigned,
		ActionStatusChanged, ActionUpdated, ActionCancelled, ActionDeleted:
		return a, nil
	}
	return "", fmt.Errorf("неизвестное действие истории %q", s)
}

type TechnicianStatus string

const (
	TechnicianAvailable    TechnicianStatus = "available"
	TechnicianBusy         TechnicianStatus = "busy"
	TechnicianOffline      TechnicianStatus = "offline"
	TechnicianOnLeave      TechnicianStatus = "on_leave"
	TechnicianNotWorking   TechnicianStatus = "not_working"
	TechnicianOverCapacity TechnicianStatus = "over_capacity"
)

func ParseTechnicianStatus(s string) (TechnicianStatus, error) {
	switch st := TechnicianStatus(s); st {
	case TechnicianAvailable, TechnicianBusy, TechnicianOffline,
		TechnicianOnLeave, TechnicianNotWorking, TechnicianOverCapacity:
		return st, nil
	}
	return "", fmt.Errorf("неизвестный статус техника %q", s)
}

// BlocksAvailability - в этих статусах техник не может быть назначен ни на какое окно.
func (s TechnicianStatus) BlocksAvailability() bool {
	return s == TechnicianOffline || s == TechnicianNotWorking || s == TechnicianOnLeave
}

type LeaveType string

const (
	LeaveVacation LeaveType = "vacation"
	LeaveSick     LeaveType = "sick"
	LeavePersonal LeaveType = "personal"
	LeaveTraining LeaveType = "training"
	LeaveOther    LeaveType = "other"
)

func ParseLeaveType(s string) (LeaveType, error) {
	switch t := LeaveType(s); t {
	case LeaveVacation, LeaveSick, LeavePersonal, LeaveTraining, LeaveOther:
		return t, nil
	}
	return "", fmt.Errorf("неизвестный тип отсутствия %q", s)
}
