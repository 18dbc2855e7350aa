package constants

//============== UPLOAD CONTEXTS ==============

// UploadContext определяет тип для контекстов загрузки файлов.
type UploadContext string

const (
	UploadContextDispatchAttachment UploadContext = "dispatch_attachment"
)

func (uc UploadContext) String() string {
	return string(uc)
}

//============== CACHE KEYS ==============

// Префиксы для ключей в Redis.
const (
	// Карточка работы из каталога.
	// Формат: catalog:job:<jobID> -> JSON
	CacheKeyCatalogJob = "catalog:job:%s"

	// Дневной счетчик номеров выездов.
	// Формат: dispatch:seq:<YYYYMMDD> -> int
	CacheKeyDispatchSequence = "dispatch:seq:%s"
)

//============== ROLES ==============

const (
	RoleDispatcher = "dispatcher"
	RoleTechnician = "technician"
	RoleApprover   = "approver"
	RoleAdmin      = "admin"
)
