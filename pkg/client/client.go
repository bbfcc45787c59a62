// Package client — программный доступ к Oroya API с локальным зеркалом.
// Мутации сперва идут на сервер; при транспортной ошибке применяются к
// зеркалу, чтобы работа продолжалась offline. Зеркало живёт в JSON-файле.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"oroya/internal/logstream"
	"oroya/internal/model"
)

// Source говорит, откуда пришёл результат операции.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Result оборачивает ответ вместе с источником и degraded-сообщением.
type Result[T any] struct {
	Value  T
	Source Source
	// Warning непустой только для local: описывает, почему сервер недоступен
	Warning string
}

type mirror struct {
	Projects []model.Project           `json:"projects"`
	Entities map[string][]model.Entity `json:"entities"` // по projectId
	Fields   map[string][]model.Field  `json:"fields"`   // по entityId
	Files    []model.FileRecord        `json:"files"`
	SavedAt  time.Time                 `json:"savedAt"`
}

func newMirror() *mirror {
	return &mirror{
		Entities: map[string][]model.Entity{},
		Fields:   map[string][]model.Field{},
	}
}

// Client — явный объект, никаких глобалов. Конкурентно-безопасен.
type Client struct {
	baseURL   string
	http      *http.Client
	cachePath string

	mu  sync.Mutex
	mir *mirror
}

// New создаёт клиент. cachePath — JSON-файл зеркала; "" = зеркало только в памяти.
func New(baseURL, cachePath string) (*Client, error) {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		cachePath: cachePath,
		mir:       newMirror(),
	}
	if cachePath != "" {
		if b, err := os.ReadFile(cachePath); err == nil {
			m := newMirror()
			if err := json.Unmarshal(b, m); err == nil {
				c.mir = m
			}
		}
	}
	return c, nil
}

func (c *Client) saveMirror() {
	if c.cachePath == "" {
		return
	}
	c.mir.SavedAt = time.Now()
	b, err := json.MarshalIndent(c.mir, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.cachePath, b, 0o644)
}

// do выполняет запрос; body nil для GET/DELETE. out может быть nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Code: apiErr.Error, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// TransportError — сервер недоступен (сеть, таймаут). Повод уйти в зеркало.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "oroya: server unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// APIError — сервер ответил, но отказал. В зеркало НЕ уходим: отказ
// валидации локальной копией не чинится.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("oroya: api error %d (%s): %s", e.Status, e.Code, e.Message)
}

func isTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ---- Projects ----

func (c *Client) ListProjects(ctx context.Context) (Result[[]model.Project], error) {
	var out []model.Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out)
	if err == nil {
		c.mu.Lock()
		c.mir.Projects = out
		c.saveMirror()
		c.mu.Unlock()
		return Result[[]model.Project]{Value: out, Source: SourceRemote}, nil
	}
	if isTransport(err) {
		c.mu.Lock()
		local := append([]model.Project(nil), c.mir.Projects...)
		c.mu.Unlock()
		return Result[[]model.Project]{
			Value:   local,
			Source:  SourceLocal,
			Warning: "server unreachable, showing cached projects",
		}, nil
	}
	return Result[[]model.Project]{}, err
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (Result[model.Project], error) {
	body := map[string]string{"name": name, "description": description}
	var out model.Project
	err := c.do(ctx, http.MethodPost, "/api/projects", body, &out)
	if err == nil {
		c.mu.Lock()
		c.mir.Projects = append(c.mir.Projects, out)
		c.saveMirror()
		c.mu.Unlock()
		return Result[model.Project]{Value: out, Source: SourceRemote}, nil
	}
	if isTransport(err) {
		// локальная запись, чтобы не терять ввод; id временный
		now := time.Now()
		p := model.Project{
			ID:          model.NewID(),
			Name:        strings.TrimSpace(name),
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		c.mu.Lock()
		c.mir.Projects = append(c.mir.Projects, p)
		c.saveMirror()
		c.mu.Unlock()
		return Result[model.Project]{
			Value:   p,
			Source:  SourceLocal,
			Warning: "server unreachable, project saved locally",
		}, nil
	}
	return Result[model.Project]{}, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) (Result[bool], error) {
	err := c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
	if err == nil {
		c.mu.Lock()
		c.dropProjectLocked(id)
		c.saveMirror()
		c.mu.Unlock()
		return Result[bool]{Value: true, Source: SourceRemote}, nil
	}
	if isTransport(err) {
		c.mu.Lock()
		removed := c.dropProjectLocked(id)
		c.saveMirror()
		c.mu.Unlock()
		return Result[bool]{
			Value:   removed,
			Source:  SourceLocal,
			Warning: "server unreachable, removed from local cache only",
		}, nil
	}
	return Result[bool]{}, err
}

func (c *Client) dropProjectLocked(id string) bool {
	for i, p := range c.mir.Projects {
		if p.ID == id {
			c.mir.Projects = append(c.mir.Projects[:i], c.mir.Projects[i+1:]...)
			delete(c.mir.Entities, id)
			return true
		}
	}
	return false
}

// ---- Entities / Fields ----

func (c *Client) ListEntities(ctx context.Context, projectID string) (Result[[]model.Entity], error) {
	var out []model.Entity
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/entities", nil, &out)
	if err == nil {
		c.mu.Lock()
		c.mir.Entities[projectID] = out
		c.saveMirror()
		c.mu.Unlock()
		return Result[[]model.Entity]{Value: out, Source: SourceRemote}, nil
	}
	if isTransport(err) {
		c.mu.Lock()
		local := append([]model.Entity(nil), c.mir.Entities[projectID]...)
		c.mu.Unlock()
		return Result[[]model.Entity]{
			Value:   local,
			Source:  SourceLocal,
			Warning: "server unreachable, showing cached entities",
		}, nil
	}
	return Result[[]model.Entity]{}, err
}

func (c *Client) ListFields(ctx context.Context, entityID string) (Result[[]model.Field], error) {
	var out []model.Field
	err := c.do(ctx, http.MethodGet, "/api/entities/"+url.PathEscape(entityID)+"/fields", nil, &out)
	if err == nil {
		c.mu.Lock()
		c.mir.Fields[entityID] = out
		c.saveMirror()
		c.mu.Unlock()
		return Result[[]model.Field]{Value: out, Source: SourceRemote}, nil
	}
	if isTransport(err) {
		c.mu.Lock()
		local := append([]model.Field(nil), c.mir.Fields[entityID]...)
		c.mu.Unlock()
		return Result[[]model.Field]{
			Value:   local,
			Source:  SourceLocal,
			Warning: "server unreachable, showing cached fields",
		}, nil
	}
	return Result[[]model.Field]{}, err
}

// ---- Log stream ----

// SubscribeLogs подключается к /ws/logs и шлёт события в канал.
// Возвращённый disposer закрывает соединение и канал.
func (c *Client) SubscribeLogs(filter logstream.Filter) (<-chan logstream.Event, func(), error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws/logs"
	q := url.Values{}
	if filter.ProjectID != "" {
		q.Set("projectId", filter.ProjectID)
	}
	if filter.Method != "" {
		q.Set("method", filter.Method)
	}
	if filter.Level != "" {
		q.Set("level", filter.Level)
	}
	if filter.Status != 0 {
		q.Set("status", fmt.Sprint(filter.Status))
	}
	if len(q) > 0 {
		wsURL += "?" + q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}

	events := make(chan logstream.Event, 64)
	done := make(chan struct{})
	var once sync.Once
	dispose := func() {
		once.Do(func() {
			close(done)
			_ = conn.Close()
		})
	}

	go func() {
		defer close(events)
		defer dispose()
		for {
			var ev logstream.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			// потребитель может бросить канал: после dispose не зависаем
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	return events, dispose, nil
}
