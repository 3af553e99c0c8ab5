// Package airtabletest поднимает маленький Airtable-совместимый сервер
// для тестов: постраничные списки с offset-токенами, одиночные мутации,
// учёт времени каждого запроса и подстановка ошибок.
package airtabletest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultPageSize = 100

// Request — один принятый запрос.
type Request struct {
	Method  string
	Path    string
	Formula string
	Body    []byte
	Time    time.Time
}

// FieldsSent декодирует объект fields из тела запроса, nil для запросов
// без тела.
func (r Request) FieldsSent() map[string]any {
	if len(r.Body) == 0 {
		return nil
	}
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(r.Body, &payload); err != nil {
		return nil
	}
	return payload.Fields
}

type storedRow struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type injected struct {
	status int
	body   string
}

// Server — поддельный Airtable API поверх httptest.
type Server struct {
	srv    *httptest.Server
	apiKey string

	mu       sync.Mutex
	tables   map[string][]*storedRow
	requests []Request
	inject   []injected

	// FilterFunc решает, проходит ли строка фильтр с данной формулой.
	// По умолчанию фильтр пропускает все строки: настоящий разбор формул
	// сервером здесь не воспроизводится.
	FilterFunc func(formula string, fields map[string]any) bool
}

// New запускает сервер, проверяющий заголовок Authorization.
func New(apiKey string) *Server {
	s := &Server{
		apiKey: apiKey,
		tables: make(map[string][]*storedRow),
	}

	r := chi.NewRouter()
	r.Route("/v0/{base}/{table}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Patch("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	s.srv = httptest.NewServer(s.middleware(r))
	return s
}

// URL возвращает корень API (аналог https://api.airtable.com/v0).
func (s *Server) URL() string { return s.srv.URL + "/v0" }

// Close останавливает сервер.
func (s *Server) Close() { s.srv.Close() }

// Seed добавляет строки в таблицу и возвращает их идентификаторы.
func (s *Server) Seed(base, table string, rows ...map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := base + "/" + table
	ids := make([]string, 0, len(rows))
	for _, fields := range rows {
		row := &storedRow{
			ID:          newRecordID(),
			CreatedTime: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
			Fields:      fields,
		}
		s.tables[key] = append(s.tables[key], row)
		ids = append(ids, row.ID)
	}
	return ids
}

// RowCount возвращает число строк таблицы.
func (s *Server) RowCount(base, table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[base+"/"+table])
}

// RowFields возвращает поля строки по идентификатору.
func (s *Server) RowFields(base, table, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.tables[base+"/"+table] {
		if row.ID == id {
			return row.Fields
		}
	}
	return nil
}

// Requests возвращает принятые запросы в порядке поступления.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestTimes возвращает времена поступления запросов.
func (s *Server) RequestTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Time)
	}
	return out
}

// ResetRequests очищает журнал запросов.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// InjectError заставляет сервер ответить на следующий запрос данным
// статусом и телом.
func (s *Server) InjectError(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inject = append(s.inject, injected{status: status, body: body})
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:  r.Method,
			Path:    r.URL.Path,
			Formula: r.URL.Query().Get("filterByFormula"),
			Body:    body,
			Time:    time.Now(),
		})
		var forced *injected
		if len(s.inject) > 0 {
			forced = &s.inject[0]
			s.inject = s.inject[1:]
		}
		s.mu.Unlock()

		if forced != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(forced.status)
			_, _ = w.Write([]byte(forced.body))
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "base") + "/" + chi.URLParam(r, "table")
	query := r.URL.Query()
	formula := query.Get("filterByFormula")

	pageSize := defaultPageSize
	if raw := query.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_UNKNOWN", "bad pageSize")
			return
		}
		pageSize = n
	}

	start := 0
	if raw := query.Get("offset"); raw != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(raw, "itr/"))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "bad offset")
			return
		}
		start = n
	}

	// Пагинация идёт по строкам таблицы, фильтр применяется внутри
	// страницы: страница может оказаться короче pageSize, но токен
	// продолжения всё равно вернётся, пока таблица не пройдена.
	s.mu.Lock()
	all := append([]*storedRow(nil), s.tables[key]...)
	s.mu.Unlock()

	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	var matched []*storedRow
	for _, row := range all[start:end] {
		if formula != "" && s.FilterFunc != nil && !s.FilterFunc(formula, row.Fields) {
			continue
		}
		matched = append(matched, row)
	}

	resp := map[string]any{"records": projectRows(matched, query["fields[]"])}
	if end < len(all) {
		resp["offset"] = "itr/" + strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	row, ok := s.findRow(r)
	if !ok {
		writeError(w, http.StatusNotFound, "MODEL_ID_NOT_FOUND", "record not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	if body.Fields == nil {
		body.Fields = map[string]any{}
	}

	row := &storedRow{
		ID:          newRecordID(),
		CreatedTime: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Fields:      body.Fields,
	}

	key := chi.URLParam(r, "base") + "/" + chi.URLParam(r, "table")
	s.mu.Lock()
	s.tables[key] = append(s.tables[key], row)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	row, ok := s.findRow(r)
	if !ok {
		writeError(w, http.StatusNotFound, "MODEL_ID_NOT_FOUND", "record not found")
		return
	}

	s.mu.Lock()
	for name, value := range body.Fields {
		if value == nil {
			delete(row.Fields, name)
			continue
		}
		row.Fields[name] = value
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "base") + "/" + chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	rows := s.tables[key]
	for i, row := range rows {
		if row.ID == id {
			s.tables[key] = append(rows[:i], rows[i+1:]...)
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
			return
		}
	}
	s.mu.Unlock()
	writeError(w, http.StatusNotFound, "MODEL_ID_NOT_FOUND", "record not found")
}

func (s *Server) findRow(r *http.Request) (*storedRow, bool) {
	key := chi.URLParam(r, "base") + "/" + chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.tables[key] {
		if row.ID == id {
			return row, true
		}
	}
	return nil, false
}

func projectRows(rows []*storedRow, columns []string) []*storedRow {
	if len(columns) == 0 {
		return append([]*storedRow{}, rows...)
	}
	out := make([]*storedRow, 0, len(rows))
	for _, row := range rows {
		projected := &storedRow{ID: row.ID, CreatedTime: row.CreatedTime, Fields: map[string]any{}}
		for _, col := range columns {
			if value, ok := row.Fields[col]; ok {
				projected.Fields[col] = value
			}
		}
		out = append(out, projected)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"type": errType, "message": message},
	})
}

func newRecordID() string {
	return "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
