package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// TimeWindow - полуоткрытый интервал [Start, End) внутри одних суток.
type TimeWindow struct {
	Start civil.Time `json:"start"`
	End   civil.Time `json:"end"`
}

// NewTimeWindow требует Start < End.
func NewTimeWindow(start, end civil.Time) (TimeWindow, error) {
	if !start.IsValid() || !end.IsValid() {
		return TimeWindow{}, fmt.Errorf("некорректное время суток")
	}
	if SecondsOf(start) >= SecondsOf(end) {
		return TimeWindow{}, fmt.Errorf("начало окна %s должно быть раньше конца %s", FormatTimeOfDay(start), FormatTimeOfDay(end))
	}
	return TimeWindow{Start: start, End: end}, nil
}

// ParseTimeWindow разбирает пару строк "HH:MM" или "HH:MM:SS".
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return NewTimeWindow(s, e)
}

// Contains: o.Start >= w.Start и o.End <= w.End.
func (w TimeWindow) Contains(o TimeWindow) bool {
	return SecondsOf(o.Start) >= SecondsOf(w.Start) && SecondsOf(o.End) <= SecondsOf(w.End)
}

// Overlaps для полуоткрытых интервалов: касание концами пересечением не считается.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return SecondsOf(w.Start) < SecondsOf(o.End) && SecondsOf(o.Start) < SecondsOf(w.End)
}

func (w TimeWindow) Duration() time.Duration {
	return time.Duration(SecondsOf(w.End)-SecondsOf(w.Start)) * time.Second
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s,%s)", FormatTimeOfDay(w.Start), FormatTimeOfDay(w.End))
}

type timeWindowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeWindowJSON{Start: FormatTimeOfDay(w.Start), End: FormatTimeOfDay(w.End)})
}

func (w *TimeWindow) UnmarshalJSON(data []byte) error {
	var raw timeWindowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeWindow(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Schedule - запланированный день и окно работ.
type Schedule struct {
	Date   civil.Date `json:"date"`
	Window TimeWindow `json:"window"`
}

func (s Schedule) Overlaps(o Schedule) bool {
	return s.Date == o.Date && s.Window.Overlaps(o.Window)
}

// Weekday по соглашению 0 = воскресенье, как в технических часах работы.
func Weekday(d civil.Date) int {
	return int(d.In(time.UTC).Weekday())
}

// DateInRange проверяет from <= d <= until; nil-граница не ограничивает.
func DateInRange(d civil.Date, from, until *civil.Date) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if until != nil && d.After(*until) {
		return false
	}
	return true
}

func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("некорректная дата %q, ожидается YYYY-MM-DD", s)
	}
	return d, nil
}

func ParseTimeOfDay(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.TimeOf(t), nil
		}
	}
	return civil.Time{}, fmt.Errorf("некорректное время %q, ожидается HH:MM", s)
}

func FormatTimeOfDay(t civil.Time) string {
	if t.Second == 0 {
		return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// SecondsOf - секунды от полуночи, доли секунды отбрасываются.
func SecondsOf(t civil.Time) int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// TimeOfDayFromMicros переводит значение колонки postgres time (мкс от полуночи).
func TimeOfDayFromMicros(us int64) civil.Time {
	secs := int(us / 1_000_000)
	return civil.Time{Hour: secs / 3600, Minute: (secs % 3600) / 60, Second: secs % 60}
}

func MicrosOf(t civil.Time) int64 {
	return int64(SecondsOf(t)) * 1_000_000
}
