package authz

import (
	"dispatch-system/pkg/constants"
)

// rolePermissions - роли приходят из справочника в токене, права к ним привязаны статически.
var rolePermissions = map[string][]string{
	constants.RoleAdmin: {Superuser},
	constants.RoleDispatcher: {
		DispatchesCreate, DispatchesView, DispatchesAssign, DispatchesCancel, DispatchesDelete,
		DispatchesAttachmentsCreate, DispatchesNotesCreate,
		CostsView, SchedulingView, WorkingHoursEdit, LeavesCreate, TechnicianStatus,
		ScopeAll,
	},
	constants.RoleTechnician: {
		DispatchesView, DispatchesWork,
		DispatchesAttachmentsCreate, DispatchesNotesCreate,
		CostsSubmit, CostsView, SchedulingView, LeavesCreate, TechnicianStatus,
		ScopeOwn,
	},
	constants.RoleApprover: {
		DispatchesView, CostsView, CostsApprove, LeavesApprove, SchedulingView,
		ScopeAll,
	},
}

// PermissionsFor возвращает набор прав роли. Неизвестная роль не получает ничего.
func PermissionsFor(role string) map[string]bool {
	perms := make(map[string]bool, len(rolePermissions[role]))
	for _, p := range rolePermissions[role] {
		perms[p] = true
	}
	return perms
}
