// Package transport выполняет HTTP-обмены с Airtable API: постраничное
// чтение и одиночные мутации. Все запросы процесса проходят через общий
// ограничитель частоты, так что конкурентные вызовы выстраиваются
// в очередь, а не бьют в сервер пачкой.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const (
	defaultAPIRoot = "https://api.airtable.com/v0"
	// Airtable разрешает 5 запросов в секунду на базу; держим общий
	// предел на процесс, как того требует сервис.
	defaultRequestsPerSecond = 5

	userAgent = "airtable-go/1.0"
)

// KeyFunc возвращает API-ключ для базы. См. пакет credentials.
type KeyFunc func(baseID string) (string, error)

// Target адресует таблицу внутри базы.
type Target struct {
	BaseID string
	Table  string
}

// Row — сырая строка таблицы в том виде, в котором её отдаёт сервер.
type Row struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// Page — одна страница ответа списка. Offset непустой, если остались
// ещё страницы.
type Page struct {
	Records []Row  `json:"records"`
	Offset  string `json:"offset"`
}

// PageRequest — параметры постраничного чтения.
type PageRequest struct {
	Formula  string
	Fields   []string
	PageSize int
	Offset   string
}

// Transport выполняет запросы к API с общим минимальным интервалом
// между ними.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter
	apiKey  KeyFunc
	apiRoot string
	log     *slog.Logger
}

// Option настраивает Transport.
type Option func(t *Transport)

// WithHTTPClient подменяет HTTP-клиент.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithAPIRoot подменяет адрес API (нужно тестам).
func WithAPIRoot(root string) Option {
	return func(t *Transport) { t.apiRoot = root }
}

// WithRequestsPerSecond задаёт клиентский предел частоты запросов.
func WithRequestsPerSecond(rps float64) Option {
	return func(t *Transport) { t.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// New создаёт транспорт. Ключ для каждой базы запрашивается у apiKey
// при каждом обмене.
func New(apiKey KeyFunc, log *slog.Logger, opts ...Option) *Transport {
	t := &Transport{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		apiKey:  apiKey,
		apiRoot: defaultAPIRoot,
		log:     log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MinInterval возвращает минимальный интервал между запросами.
func (t *Transport) MinInterval() time.Duration {
	return time.Duration(float64(time.Second) / float64(t.limiter.Limit()))
}

// FetchPage читает одну страницу таблицы.
func (t *Transport) FetchPage(ctx context.Context, tgt Target, req PageRequest) (*Page, error) {
	params := url.Values{}
	if req.Formula != "" {
		params.Set("filterByFormula", req.Formula)
	}
	for _, field := range req.Fields {
		params.Add("fields[]", field)
	}
	if req.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	if req.Offset != "" {
		params.Set("offset", req.Offset)
	}

	endpoint := t.tableURL(tgt)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page Page
	if err := t.exchange(ctx, tgt, http.MethodGet, endpoint, nil, &page, ""); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchRecord читает одну запись по идентификатору.
func (t *Transport) FetchRecord(ctx context.Context, tgt Target, id string) (*Row, error) {
	var row Row
	if err := t.exchange(ctx, tgt, http.MethodGet, t.tableURL(tgt)+"/"+id, nil, &row, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create создаёт одну запись. Сервер принимает не больше одной записи
// на запрос; транспорт никогда не собирает мутации в пакеты.
func (t *Transport) Create(ctx context.Context, tgt Target, fieldValues map[string]any) (*Row, error) {
	body := map[string]any{"fields": fieldValues}
	var row Row
	if err := t.exchange(ctx, tgt, http.MethodPost, t.tableURL(tgt), body, &row, ""); err != nil {
		return nil, err
	}
	return &row, nil
}

// Update отправляет частичное обновление одной записи.
func (t *Transport) Update(ctx context.Context, tgt Target, id string, fieldValues map[string]any) error {
	body := map[string]any{"fields": fieldValues}
	return t.exchange(ctx, tgt, http.MethodPatch, t.tableURL(tgt)+"/"+id, body, nil, id)
}

// Delete удаляет одну запись.
func (t *Transport) Delete(ctx context.Context, tgt Target, id string) error {
	return t.exchange(ctx, tgt, http.MethodDelete, t.tableURL(tgt)+"/"+id, nil, nil, id)
}

func (t *Transport) tableURL(tgt Target) string {
	return t.apiRoot + "/" + tgt.BaseID + "/" + url.PathEscape(tgt.Table)
}

func (t *Transport) exchange(ctx context.Context, tgt Target, method, endpoint string, body, result any, recordID string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	key, err := t.apiKey(tgt.BaseID)
	if err != nil {
		return fmt.Errorf("resolve api key for base %q: %w", tgt.BaseID, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Ограничитель пропускает запрос и тут же освобождается: сам обмен
	// не удерживает окно дольше собственной длительности.
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	t.log.Debug("отправка запроса", "method", method, "url", endpoint)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	t.log.Debug("получен ответ", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return t.asError(resp.StatusCode, respBody, recordID)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func (t *Transport) asError(status int, body []byte, recordID string) error {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	// Тело ошибки не всегда JSON; тип и сообщение необязательны.
	_ = json.Unmarshal(body, &payload)

	err := &Error{
		Status:  status,
		Body:    body,
		Type:    payload.Error.Type,
		Message: payload.Error.Message,
	}

	if status == http.StatusTooManyRequests {
		return &RateLimitError{Err: err}
	}
	if recordID != "" && (status == http.StatusNotFound || payload.Error.Type == "MODEL_ID_NOT_FOUND") {
		return &NotFoundError{ID: recordID}
	}
	return err
}
