package filter

import "fmt"

// InvalidFieldError возвращается, когда условие ссылается на поле,
// не объявленное в схеме таблицы. Это ошибка программирования,
// повторять запрос бессмысленно.
type InvalidFieldError struct {
	Table string
	Field string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("table %q has no field %q", e.Table, e.Field)
}
