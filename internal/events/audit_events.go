package events

import (
	"dispatch-system/internal/entities"
)

const (
	DispatchHistoryRecordedName  = "dispatch.history.recorded"
	TechnicianStatusRecordedName = "technician.status.recorded"
)

// DispatchHistoryRecorded - выезд изменился, запись истории ждет сохранения.
type DispatchHistoryRecorded struct {
	Event    entities.DispatchHistoryEvent
	Dispatch *entities.Dispatch // состояние после перехода, для ленты диспетчера
}

// Name - реализуем интерфейс eventbus.Event
func (e DispatchHistoryRecorded) Name() string {
	return DispatchHistoryRecordedName
}

// TechnicianStatusRecorded - техник сменил текущий статус.
type TechnicianStatusRecorded struct {
	Event entities.TechnicianStatusEvent
}

func (e TechnicianStatusRecorded) Name() string {
	return TechnicianStatusRecordedName
}
