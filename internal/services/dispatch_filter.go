package services

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

// dispatchFilterFrom переводит общий фильтр запроса в фильтр репозитория выездов.
// Поддерживаются filter[status], filter[priority], filter[technician_id], filter[date_from], filter[date_to].
func dispatchFilterFrom(f types.Filter) (entities.DispatchFilter, error) {
	out := entities.DispatchFilter{
		Search: strings.TrimSpace(f.Search),
	}
	if f.Limit > 0 {
		out.Limit = uint64(f.Limit)
	}
	if f.Offset > 0 {
		out.Offset = uint64(f.Offset)
	}
	for field, order := range f.Sort {
		out.SortBy, out.SortOrder = field, strings.ToLower(order)
	}

	for _, raw := range filterValues(f, "status") {
		st, err := entities.ParseDispatchStatus(raw)
		if err != nil {
			return out, apperrors.NewValidationError("filter[status]", "%s", err.Error())
		}
		out.Statuses = append(out.Statuses, st)
	}
	for _, raw := range filterValues(f, "priority") {
		p, err := entities.ParsePriority(raw)
		if err != nil {
			return out, apperrors.NewValidationError("filter[priority]", "%s", err.Error())
		}
		out.Priorities = append(out.Priorities, p)
	}
	if ids := filterValues(f, "technician_id"); len(ids) > 0 {
		out.TechnicianID = ids[0]
	}

	var err error
	if out.DateFrom, err = filterDate(f, "date_from"); err != nil {
		return out, err
	}
	if out.DateTo, err = filterDate(f, "date_to"); err != nil {
		return out, err
	}
	if out.DateFrom != nil && out.DateTo != nil && out.DateTo.Before(*out.DateFrom) {
		return out, apperrors.NewValidationError("filter[date_to]", "конец периода раньше начала")
	}
	return out, nil
}

func filterValues(f types.Filter, key string) []string {
	switch v := f.Filter[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}

func filterDate(f types.Filter, key string) (*civil.Date, error) {
	values := filterValues(f, key)
	if len(values) == 0 {
		return nil, nil
	}
	d, err := types.ParseDate(values[0])
	if err != nil {
		return nil, apperrors.NewValidationError("filter["+key+"]", "%s", err.Error())
	}
	return &d, nil
}
