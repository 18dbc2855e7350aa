package repositories

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"

	"dispatch-system/pkg/types"
)

func dateParam(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func dateFrom(v pgtype.Date) *civil.Date {
	if !v.Valid {
		return nil
	}
	d := civil.DateOf(v.Time)
	return &d
}

func timeParam(t *civil.Time) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: types.MicrosOf(*t), Valid: true}
}

func timeFrom(v pgtype.Time) *civil.Time {
	if !v.Valid {
		return nil
	}
	t := types.TimeOfDayFromMicros(v.Microseconds)
	return &t
}

// windowFrom собирает окно, только если заданы обе границы.
func windowFrom(start, end pgtype.Time) *types.TimeWindow {
	s, e := timeFrom(start), timeFrom(end)
	if s == nil || e == nil {
		return nil
	}
	return &types.TimeWindow{Start: *s, End: *e}
}

func jsonParam(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// text[] NOT NULL: nil-срез записывается как пустой массив.
func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
