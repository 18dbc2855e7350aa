// internal/authz/permissions.go
package authz

// --- СПИСОК ВСЕХ ПЕРМИШЕНОВ В СИСТЕМЕ ---

const (
	// Глобальные
	Superuser = "superuser"

	// Выезды (Dispatches)
	DispatchesCreate = "dispatches:create"
	DispatchesView   = "dispatches:view"
	DispatchesAssign = "dispatches:assign"
	DispatchesWork   = "dispatches:work" // start, progress, complete
	DispatchesCancel = "dispatches:cancel"
	DispatchesDelete = "dispatches:delete"

	// Вложения и заметки
	DispatchesAttachmentsCreate = "dispatches:attachments:create"
	DispatchesNotesCreate       = "dispatches:notes:create"

	// Затраты (Cost entries)
	CostsSubmit  = "costs:submit"
	CostsView    = "costs:view"
	CostsApprove = "costs:approve"

	// Планирование
	SchedulingView   = "scheduling:view"
	WorkingHoursEdit = "working_hours:edit"
	LeavesCreate     = "leaves:create"
	LeavesApprove    = "leaves:approve"
	TechnicianStatus = "technicians:status"
	DirectorySync    = "technicians:sync"

	// Модификаторы Области (Scopes)
	ScopeOwn = "scope:own"
	ScopeAll = "scope:all"
)
