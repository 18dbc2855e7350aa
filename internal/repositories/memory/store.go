// Package memory - хранилище в памяти для режима STORE_DRIVER=memory и тестов сервисов.
// Транзакции сериализуются одним мьютексом, поэтому блокировки строк не нужны.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	dispatches   map[string]*entities.Dispatch
	technicians  map[string]*entities.Technician
	workingHours map[string]*entities.WorkingHoursWindow
	leaves       map[string]*entities.LeaveRecord
	jobs         map[string]*entities.CatalogJob
	attachments  []*entities.Attachment
	notes        []*entities.Note

	dispatchHistory []*entities.DispatchHistoryEvent
	statusHistory   []*entities.TechnicianStatusEvent
	seenEvents      map[string]struct{}

	timeEntries *costStore[*entities.TimeEntry]
	expenses    *costStore[*entities.Expense]
	materials   *costStore[*entities.Material]
}

func NewStore() *Store {
	return &Store{
		dispatches:   make(map[string]*entities.Dispatch),
		technicians:  make(map[string]*entities.Technician),
		workingHours: make(map[string]*entities.WorkingHoursWindow),
		leaves:       make(map[string]*entities.LeaveRecord),
		jobs:         make(map[string]*entities.CatalogJob),
		seenEvents:   make(map[string]struct{}),
		timeEntries:  newCostStore("time_entry", func(e *entities.TimeEntry) *entities.TimeEntry { c := *e; return &c }),
		expenses:     newCostStore("expense", func(e *entities.Expense) *entities.Expense { c := *e; return &c }),
		materials:    newCostStore("material", func(e *entities.Material) *entities.Material { c := *e; return &c }),
	}
}

// RunInTransaction выполняет fn под глобальным мьютексом. tx всегда nil.
// Откат не поддерживается: сервисы пишут только после всех проверок.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

func (s *Store) TxManager() repositories.TxManagerInterface { return s }

func (s *Store) Dispatches() repositories.DispatchRepositoryInterface {
	return &dispatchRepository{s: s}
}

func (s *Store) Technicians() repositories.TechnicianDirectoryInterface {
	return &technicianRepository{s: s}
}

func (s *Store) WorkingHours() repositories.WorkingHoursRepositoryInterface {
	return &workingHoursRepository{s: s}
}

func (s *Store) Leaves() repositories.LeaveRepositoryInterface {
	return &leaveRepository{s: s}
}

func (s *Store) DispatchHistory() repositories.DispatchHistoryRepositoryInterface {
	return &dispatchHistoryRepository{s: s}
}

func (s *Store) StatusHistory() repositories.TechnicianStatusHistoryRepositoryInterface {
	return &statusHistoryRepository{s: s}
}

func (s *Store) TimeEntries() repositories.CostEntryRepositoryInterface[*entities.TimeEntry] {
	return &costRepository[*entities.TimeEntry]{s: s, store: s.timeEntries}
}

func (s *Store) Expenses() repositories.CostEntryRepositoryInterface[*entities.Expense] {
	return &costRepository[*entities.Expense]{s: s, store: s.expenses}
}

func (s *Store) Materials() repositories.CostEntryRepositoryInterface[*entities.Material] {
	return &costRepository[*entities.Material]{s: s, store: s.materials}
}

func (s *Store) Attachments() repositories.AttachmentRepositoryInterface {
	return &attachmentRepository{s: s}
}

func (s *Store) Notes() repositories.NoteRepositoryInterface {
	return &noteRepository{s: s}
}

func (s *Store) Jobs() repositories.JobCatalogInterface {
	return &jobCatalog{s: s}
}

// PutJob наполняет каталог; сам каталог только для чтения.
func (s *Store) PutJob(j *entities.CatalogJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *j
	s.jobs[j.ID] = &c
}
