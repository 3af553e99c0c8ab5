package fields

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000Z"
)

// Date — календарная дата без времени и часового пояса.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf отбрасывает время и часовой пояс значения t.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// FormulaLiteral реализует filter.Literal: дата в формуле заключается
// в кавычки без компоненты времени.
func (d Date) FormulaLiteral() string {
	return `"` + d.String() + `"`
}

// DateField — поле даты. Пустое значение — nil.
type DateField struct{}

func (DateField) Decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("fields: expected date string, got %T", raw)
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("fields: bad date %q: %w", s, err)
	}
	return d, nil
}

func (DateField) Encode(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	d, ok := value.(Date)
	if !ok {
		return nil, fmt.Errorf("fields: expected Date, got %T", value)
	}
	return d.String(), nil
}

func (DateField) Empty() any          { return nil }
func (DateField) Clone(value any) any { return value }
func (DateField) Equal(a, b any) bool { return a == b }

// DateTimeField — поле даты и времени. Значения хранятся в UTC,
// пустое значение — nil.
type DateTimeField struct{}

func (DateTimeField) Decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("fields: expected datetime string, got %T", raw)
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return nil, fmt.Errorf("fields: bad datetime %q: %w", s, err)
	}
	return t.UTC(), nil
}

func (DateTimeField) Encode(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	t, ok := value.(time.Time)
	if !ok {
		return nil, fmt.Errorf("fields: expected time.Time, got %T", value)
	}
	return t.UTC().Format(dateTimeLayout), nil
}

func (DateTimeField) Empty() any          { return nil }
func (DateTimeField) Clone(value any) any { return value }

func (DateTimeField) Equal(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return a == b
}
