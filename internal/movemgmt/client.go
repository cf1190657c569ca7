// Package movemgmt is a client for the MoveMgmt back-office service, the system
// of record for moves and inventory.
package movemgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// Sentinel errors for MoveMgmt failures.
var (
	ErrNotFound    = errors.New("movemgmt resource not found")
	ErrUnreachable = errors.New("movemgmt unreachable")
	ErrTimeout     = errors.New("movemgmt timeout")
	ErrBackend     = errors.New("movemgmt error")
)

// APIError is a non-2xx response from MoveMgmt.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("movemgmt error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrBackend
}

// TokenProvider supplies the bearer token for each request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to MoveMgmt over REST.
type Client struct {
	baseURL string
	tokens  TokenProvider
	client  *http.Client

	Moves               *MoveService
	Houses              *Resource[models.MoveHouse]
	Rooms               *Resource[models.MoveRoom]
	ItemStatuses        *ItemStatusService
	ItemQualityControls *Resource[models.ItemQualityControl]
	ItemPhotos          *Resource[models.ItemPhoto]
}

// NewClient creates a MoveMgmt client.
func NewClient(baseURL string, tokens TokenProvider, timeout time.Duration) *Client {
	c := &Client{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
	c.Moves = &MoveService{Resource: &Resource[models.Move]{c: c, path: "/moves", codec: moveCodec}}
	c.Houses = &Resource[models.MoveHouse]{c: c, path: "/movehouses", codec: houseCodec}
	c.Rooms = &Resource[models.MoveRoom]{c: c, path: "/moverooms", codec: roomCodec}
	c.ItemStatuses = &ItemStatusService{Resource: &Resource[models.ItemStatus]{c: c, path: "/itemstatuses", codec: itemStatusCodec}}
	c.ItemQualityControls = &Resource[models.ItemQualityControl]{c: c, path: "/itemqualitycontrols", codec: qcCodec}
	c.ItemPhotos = &Resource[models.ItemPhoto]{c: c, path: "/itemphotos", codec: photoCodec}
	return c
}

// codec translates between a portal model and its MoveMgmt wire form.
type codec[M any] interface {
	decode(raw json.RawMessage) (M, error)
	encode(m M) (any, error)
}

// Resource is one REST collection supporting list/get/create/update/delete.
type Resource[M any] struct {
	c     *Client
	path  string
	codec codec[M]
}

func (r *Resource[M]) List(ctx context.Context) ([]M, error) {
	var raw []json.RawMessage
	if err := r.c.do(ctx, http.MethodGet, r.path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]M, 0, len(raw))
	for _, item := range raw {
		m, err := r.codec.decode(item)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", r.path, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Resource[M]) Get(ctx context.Context, id string) (*M, error) {
	return r.send(ctx, http.MethodGet, r.itemPath(id), nil)
}

func (r *Resource[M]) Create(ctx context.Context, m M) (*M, error) {
	return r.send(ctx, http.MethodPost, r.path, &m)
}

func (r *Resource[M]) Update(ctx context.Context, id string, m M) (*M, error) {
	return r.send(ctx, http.MethodPut, r.itemPath(id), &m)
}

// Delete removes the resource; MoveMgmt answers 204 on success.
func (r *Resource[M]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Resource[M]) send(ctx context.Context, method, p string, m *M) (*M, error) {
	var body any
	if m != nil {
		w, err := r.codec.encode(*m)
		if err != nil {
			return nil, err
		}
		body = w
	}

	var raw json.RawMessage
	if err := r.c.do(ctx, method, p, body, &raw); err != nil {
		return nil, err
	}
	out, err := r.codec.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p, err)
	}
	return &out, nil
}

func (r *Resource[M]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, p string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, resp.Body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, p, err)
	}
	return nil
}

func newAPIError(status int, body io.Reader) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	msg := ""
	if json.Unmarshal(raw, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Title
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
