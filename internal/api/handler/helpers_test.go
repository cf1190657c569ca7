package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/surveyportal/internal/api/middleware"
	"github.com/kiranshivaraju/surveyportal/internal/store"
	"github.com/kiranshivaraju/surveyportal/internal/upload"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
	"github.com/stretchr/testify/require"
)

var testPartnerID = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

// serve routes req through a chi router so URL parameters resolve.
func serve(h http.HandlerFunc, method, pattern string, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(mw.SetPartnerID(req.Context(), testPartnerID))
}

func anonReq(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), rec.Body.String())
	return env.Data
}

func parseList(t *testing.T, rec *httptest.ResponseRecorder) ([]any, map[string]any) {
	t.Helper()
	var env struct {
		Data []any         `json:"data"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), rec.Body.String())
	return env.Data, env.Meta
}

func parseErrCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), rec.Body.String())
	return env.Error.Code
}

// --- mock Uploader ---

type mockUploader struct {
	startFn func(ctx context.Context, partnerID uuid.UUID, f upload.File) (*models.UploadJob, error)
	getFn   func(partnerID uuid.UUID, uploadID string) (models.UploadJob, error)
	retryFn func(ctx context.Context, partnerID uuid.UUID, uploadID string) (*models.UploadJob, error)
}

func (m *mockUploader) Start(ctx context.Context, partnerID uuid.UUID, f upload.File, _ func(int)) (*models.UploadJob, error) {
	return m.startFn(ctx, partnerID, f)
}

func (m *mockUploader) Get(partnerID uuid.UUID, uploadID string) (models.UploadJob, error) {
	if m.getFn == nil {
		return models.UploadJob{}, upload.ErrNotFound
	}
	return m.getFn(partnerID, uploadID)
}

func (m *mockUploader) Retry(ctx context.Context, partnerID uuid.UUID, uploadID string) (*models.UploadJob, error) {
	return m.retryFn(ctx, partnerID, uploadID)
}

// --- mock ledger and key store ---

type mockStore struct {
	jobs       map[string]*models.UploadJob
	imports    []*models.ManifestImport
	keys       []*models.APIKey
	lastFilter store.UploadFilter
	err        error
}

func newMockStore() *mockStore {
	return &mockStore{jobs: make(map[string]*models.UploadJob)}
}

func (m *mockStore) GetUploadJob(_ context.Context, uploadID string, partnerID uuid.UUID) (*models.UploadJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	j, ok := m.jobs[uploadID]
	if !ok || j.PartnerID != partnerID {
		return nil, store.ErrNotFound
	}
	return j, nil
}

func (m *mockStore) ListUploadJobs(_ context.Context, f store.UploadFilter) ([]*models.UploadJob, int, error) {
	m.lastFilter = f
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []*models.UploadJob
	for _, j := range m.jobs {
		if j.PartnerID == f.PartnerID && (f.Status == "" || j.Status == f.Status) {
			out = append(out, j)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) ListManifestImports(_ context.Context, uploadID string, partnerID uuid.UUID) ([]*models.ManifestImport, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.ManifestImport
	for _, imp := range m.imports {
		if imp.UploadID == uploadID && imp.PartnerID == partnerID {
			out = append(out, imp)
		}
	}
	return out, nil
}

func (m *mockStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if m.err != nil {
		return m.err
	}
	for _, k := range m.keys {
		if k.PartnerID == key.PartnerID && k.Name == key.Name {
			return store.ErrDuplicateKey
		}
	}
	m.keys = append(m.keys, key)
	return nil
}

func (m *mockStore) ListAPIKeys(_ context.Context, partnerID uuid.UUID) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.PartnerID == partnerID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockStore) RevokeAPIKey(_ context.Context, id uuid.UUID, partnerID uuid.UUID) error {
	for i, k := range m.keys {
		if k.ID == id && k.PartnerID == partnerID {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

var (
	_ UploadLedger = (*mockStore)(nil)
	_ KeyManager   = (*mockStore)(nil)
)
