package transport

import "fmt"

// Error — ответ сервера со статусом вне 2xx. Тело сохраняется целиком:
// вызывающая сторона сама решает, что с ним делать.
type Error struct {
	Status  int
	Body    []byte
	Type    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: status %d (%s): %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable: status %d", e.Status)
}

// RateLimitError — сервер отклонил запрос из-за превышения лимита,
// несмотря на клиентское троттлинг-окно. Запрос можно повторить;
// транспорт сам этого не делает.
type RateLimitError struct {
	Err *Error
}

func (e *RateLimitError) Error() string {
	return "airtable: rate limit exceeded"
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// NotFoundError — запись с данным идентификатором отсутствует.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("airtable: record %q not found", e.ID)
}
