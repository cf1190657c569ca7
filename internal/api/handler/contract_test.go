package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/internal/api"
	"github.com/kiranshivaraju/surveyportal/internal/api/handler"
	mw "github.com/kiranshivaraju/surveyportal/internal/api/middleware"
	"github.com/kiranshivaraju/surveyportal/internal/auth"
	"github.com/kiranshivaraju/surveyportal/internal/cache"
	"github.com/kiranshivaraju/surveyportal/internal/manifest"
	"github.com/kiranshivaraju/surveyportal/internal/movemgmt"
	"github.com/kiranshivaraju/surveyportal/internal/store"
	"github.com/kiranshivaraju/surveyportal/internal/survey"
	"github.com/kiranshivaraju/surveyportal/internal/upload"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ─── test fixtures ───────────────────────────────────────────────────────────

var (
	testPartnerID = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	testRawKey    = "sp_contract_test_key_1234567890"
	mp4Header     = append([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), make([]byte, 64)...)
)

// ─── in-memory store ─────────────────────────────────────────────────────────

type memStore struct {
	mu      sync.Mutex
	keys    []*models.APIKey
	jobs    map[string]*models.UploadJob
	imports []*models.ManifestImport
}

func newMemStore(t *testing.T) *memStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testRawKey), bcrypt.MinCost)
	require.NoError(t, err)
	return &memStore{
		jobs: make(map[string]*models.UploadJob),
		keys: []*models.APIKey{{
			ID:        uuid.New(),
			PartnerID: testPartnerID,
			Name:      "contract",
			KeyHash:   string(hash),
			KeyPrefix: testRawKey[:8],
			Scopes:    []string{"read", "write", "admin"},
		}},
	}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) GetDefaultPartner(context.Context) (*models.Partner, error) {
	return &models.Partner{ID: testPartnerID, Name: "default"}, nil
}

func (s *memStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error { return nil }

func (s *memStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

func (s *memStore) ListAPIKeys(_ context.Context, partnerID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.PartnerID == partnerID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memStore) RevokeAPIKey(context.Context, uuid.UUID, uuid.UUID) error { return store.ErrNotFound }

func (s *memStore) CreateUploadJob(_ context.Context, job *models.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.UploadID] = &cp
	return nil
}

func (s *memStore) UpdateUploadJobStatus(_ context.Context, uploadID string, status models.UploadStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[uploadID]
	if !ok {
		return store.ErrNotFound
	}
	j.Status, j.Message = status, message
	return nil
}

func (s *memStore) GetUploadJob(_ context.Context, uploadID string, partnerID uuid.UUID) (*models.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[uploadID]
	if !ok || j.PartnerID != partnerID {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *memStore) UploadOwner(_ context.Context, uploadID string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[uploadID]
	if !ok {
		return uuid.Nil, false, nil
	}
	return j.PartnerID, true, nil
}

func (s *memStore) ListUploadJobs(_ context.Context, f store.UploadFilter) ([]*models.UploadJob, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.UploadJob
	for _, j := range s.jobs {
		if j.PartnerID == f.PartnerID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (s *memStore) CreateManifestImport(_ context.Context, imp *models.ManifestImport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports = append(s.imports, imp)
	return nil
}

func (s *memStore) ListManifestImports(_ context.Context, uploadID string, partnerID uuid.UUID) ([]*models.ManifestImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ManifestImport
	for _, imp := range s.imports {
		if imp.UploadID == uploadID && imp.PartnerID == partnerID {
			out = append(out, imp)
		}
	}
	return out, nil
}

var _ store.Store = (*memStore)(nil)

// ─── in-memory cache ─────────────────────────────────────────────────────────

type memCache struct {
	mu        sync.Mutex
	data      map[string][]byte
	published map[string][][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, published: map[string][][]byte{}}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (c *memCache) Publish(_ context.Context, channel string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[channel] = append(c.published[channel], payload)
	return nil
}

func (c *memCache) messages(channel string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.published[channel]...)
}

var _ cache.Cache = (*memCache)(nil)

// ─── fake backends ───────────────────────────────────────────────────────────

// surveyBackend fakes the upload/analysis API and the object store behind
// its signed URLs.
type surveyBackend struct {
	mu       sync.Mutex
	status   string
	message  string
	uploaded []byte
	srv      *httptest.Server
}

func newSurveyBackend(t *testing.T) *surveyBackend {
	b := &surveyBackend{status: "Queued"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /survey/presigned-url", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"preSignedUrl": b.srv.URL + "/bucket/object",
			"s3Key":        "surveys/object",
			"uploadId":     "up-1",
		})
	})
	mux.HandleFunc("PUT /bucket/object", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.uploaded = body
		b.mu.Unlock()
	})
	mux.HandleFunc("POST /survey/process-upload", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.status, b.message = "Queued", ""
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"uploadId": "up-1", "status": "Queued"})
	})
	mux.HandleFunc("GET /survey/upload/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"uploadId": r.PathValue("id"), "status": b.status, "message": b.message})
	})
	mux.HandleFunc("GET /uploads/{id}/analysis", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "i1", "itemName": "Sofa", "quantity": 1},
			{"id": "i2", "itemName": "Lamp", "quantity": 2},
			{"id": "i3", "itemName": "Rug", "quantity": 1},
		})
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *surveyBackend) set(status, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status, b.message = status, message
}

func (b *surveyBackend) received() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploaded
}

// moveBackend fakes MoveMgmt.
type moveBackend struct {
	mu        sync.Mutex
	failBulk  bool
	bulkBody  []byte
	moveState string
	srv       *httptest.Server
}

func newMoveBackend(t *testing.T) *moveBackend {
	b := &moveBackend{moveState: "Scheduled"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /itemstatuses/bulk", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failBulk {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "inventory unavailable"})
			return
		}
		b.bulkBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})
	move := func() map[string]any {
		return map[string]any{"id": "m-1", "customerName": "Ada", "status": b.moveState}
	}
	mux.HandleFunc("GET /moves/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(move())
	})
	mux.HandleFunc("PUT /moves/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var body struct {
			Status string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		b.moveState = body.Status
		json.NewEncoder(w).Encode(move())
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *moveBackend) setFailBulk(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failBulk = fail
}

func (b *moveBackend) lastBulk() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bulkBody
}

func (b *moveBackend) state() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.moveState
}

// ─── test server ─────────────────────────────────────────────────────────────

type testServer struct {
	server *httptest.Server
	store  *memStore
	cache  *memCache
	survey *surveyBackend
	moves  *moveBackend
	poller *upload.Poller
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ms := newMemStore(t)
	mc := newMemCache()
	sb := newSurveyBackend(t)
	mb := newMoveBackend(t)

	session := auth.NewSession(auth.StaticTokenSource("backend-token"))
	surveyClient := survey.NewHTTPClient(sb.srv.URL, "1", session, 5*time.Second, 5*time.Second)
	moveClient := movemgmt.NewClient(mb.srv.URL, session, 5*time.Second)

	notifier := upload.MultiNotifier{
		upload.LogNotifier{},
		upload.NewPublishNotifier(mc, cache.UploadNotificationsChannel),
	}
	uploads := upload.NewService(surveyClient, ms, notifier, 1<<20)
	reconciler := manifest.NewReconciler(uploads, surveyClient, moveClient.ItemStatuses, ms,
		manifest.NewCacheSessionStore(mc, time.Minute))

	deps := api.Dependencies{
		Auth:      mw.NewAuth(ms),
		RateLimit: mw.NewRateLimit(mc, 100),

		HealthHandler: handler.NewHealthHandler(ms, mc),

		CreateUpload: handler.NewCreateUploadHandler(uploads, 1<<20, t.TempDir()),
		ListUploads:  handler.NewListUploadsHandler(ms),
		GetUpload:    handler.NewGetUploadHandler(uploads, ms),
		RetryUpload:  handler.NewRetryUploadHandler(uploads),
		ListImports:  handler.NewListImportsHandler(ms),

		OpenReview:    handler.NewOpenReviewHandler(reconciler),
		GetReview:     handler.NewGetReviewHandler(reconciler),
		ToggleItem:    handler.NewToggleItemHandler(reconciler),
		SelectAll:     handler.NewSelectAllHandler(reconciler),
		DeselectAll:   handler.NewDeselectAllHandler(reconciler),
		ConfirmReview: handler.NewConfirmReviewHandler(reconciler),

		ListMoves:        handler.NewListMovesHandler(moveClient.Moves),
		GetMove:          handler.NewGetMoveHandler(moveClient.Moves),
		UpdateMoveStatus: handler.NewUpdateMoveStatusHandler(moveClient.Moves),

		InvoicePreview: handler.NewInvoicePreviewHandler(),

		CreateKeyHandler: handler.NewCreateKeyHandler(ms),
		ListKeysHandler:  handler.NewListKeysHandler(ms),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(ms),
	}

	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(srv.Close)

	return &testServer{
		server: srv,
		store:  ms,
		cache:  mc,
		survey: sb,
		moves:  mb,
		poller: upload.NewPoller(uploads, time.Hour),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testRawKey)
	req.Header.Set("Content-Type", "application/json")
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func (ts *testServer) uploadVideo(t *testing.T, content []byte) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="walkthrough.mp4"`)
	h.Set("Content-Type", "video/mp4")
	part, err := mpw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/api/v1/uploads", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testRawKey)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	return ts.send(t, req)
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONTRACT TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestHealth_Unauthenticated(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestContract_UploadAnalyzeReviewImport(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// Upload: signed URL, transfer, submit.
	status, body := ts.uploadVideo(t, mp4Header)
	require.Equal(t, http.StatusAccepted, status, body)
	job := data(t, body)
	assert.Equal(t, "up-1", job["upload_id"])
	assert.Equal(t, "Queued", job["status"])
	assert.Equal(t, mp4Header, ts.survey.received())

	// Reviews can only be opened once analysis completes.
	status, body = ts.do(t, http.MethodPost, "/api/v1/uploads/up-1/reviews", map[string]string{"room_id": "room-7"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ANALYSIS_NOT_COMPLETED", errCode(body))

	// Poll to completion; exactly one notification is published.
	ts.survey.set("Completed", "")
	<-ts.poller.Tick(ctx)
	<-ts.poller.Tick(ctx)

	status, body = ts.do(t, http.MethodGet, "/api/v1/uploads/up-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Completed", data(t, body)["status"])
	require.Len(t, ts.cache.messages(cache.UploadNotificationsChannel), 1)

	stored, err := ts.store.GetUploadJob(ctx, "up-1", testPartnerID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCompleted, stored.Status)

	// Review: all items start selected; deselect one.
	status, body = ts.do(t, http.MethodPost, "/api/v1/uploads/up-1/reviews", map[string]string{"room_id": "room-7"})
	require.Equal(t, http.StatusCreated, status, body)
	review := data(t, body)
	assert.Equal(t, float64(3), review["selected_count"])
	reviewPath := "/api/v1/reviews/" + review["id"].(string)

	status, body = ts.do(t, http.MethodPost, reviewPath+"/items/i2/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), data(t, body)["selected_count"])

	// A failed import keeps the review and its selection.
	ts.moves.setFailBulk(true)
	status, body = ts.do(t, http.MethodPost, reviewPath+"/confirm", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body["error"].(map[string]any)["message"], "inventory unavailable")

	status, body = ts.do(t, http.MethodGet, reviewPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), data(t, body)["selected_count"])

	// Retrying succeeds and sends exactly the selected items.
	ts.moves.setFailBulk(false)
	status, body = ts.do(t, http.MethodPost, reviewPath+"/confirm", nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, float64(2), data(t, body)["item_count"])

	var bulk struct {
		ItemStatuses []map[string]any `json:"itemStatuses"`
	}
	require.NoError(t, json.Unmarshal(ts.moves.lastBulk(), &bulk))
	require.Len(t, bulk.ItemStatuses, 2)
	for i, want := range []string{"i1", "i3"} {
		assert.Equal(t, want, bulk.ItemStatuses[i]["id"])
		assert.Equal(t, "room-7", bulk.ItemStatuses[i]["moveRoomId"])
		assert.Equal(t, false, bulk.ItemStatuses[i]["isPacked"])
		assert.Equal(t, "", bulk.ItemStatuses[i]["packedByUserId"])
	}

	// The review is closed and the import is on record.
	status, _ = ts.do(t, http.MethodGet, reviewPath, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ts.do(t, http.MethodGet, "/api/v1/uploads/up-1/imports", nil)
	require.Equal(t, http.StatusOK, status)
	imports := body["data"].([]any)
	require.Len(t, imports, 1)
	assert.Equal(t, "room-7", imports[0].(map[string]any)["room_id"])
}

func TestContract_FailedUploadRetry(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	status, _ := ts.uploadVideo(t, mp4Header)
	require.Equal(t, http.StatusAccepted, status)

	// Retrying a job that has not failed is a conflict.
	status, body := ts.do(t, http.MethodPost, "/api/v1/uploads/up-1/retry", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NOT_RETRYABLE", errCode(body))

	ts.survey.set("Failed", "unreadable video")
	<-ts.poller.Tick(ctx)

	status, body = ts.do(t, http.MethodGet, "/api/v1/uploads/up-1", nil)
	require.Equal(t, http.StatusOK, status)
	got := data(t, body)
	assert.Equal(t, "Failed", got["status"])
	assert.Equal(t, "unreadable video", got["message"])

	status, body = ts.do(t, http.MethodPost, "/api/v1/uploads/up-1/retry", nil)
	require.Equal(t, http.StatusAccepted, status, body)
	assert.Equal(t, "Queued", data(t, body)["status"])
	assert.Equal(t, "up-1", data(t, body)["upload_id"])

	status, body = ts.do(t, http.MethodGet, "/api/v1/uploads", nil)
	require.Equal(t, http.StatusOK, status)
	list := body["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Queued", list[0].(map[string]any)["status"])
}

func TestContract_UploadRejectedBeforeNetwork(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.uploadVideo(t, []byte("%PDF-1.7 definitely not a video"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FILE", errCode(body))
	assert.Nil(t, ts.survey.received())
}

func TestContract_MoveStatusTranslated(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPut, "/api/v1/moves/m-1/status", map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "in_progress", data(t, body)["status"])
	assert.Equal(t, "InProgress", ts.moves.state())

	status, body = ts.do(t, http.MethodGet, "/api/v1/moves/m-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "in_progress", data(t, body)["status"])
}

func TestContract_AdminKeyLifecycle(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/v1/admin/keys", map[string]any{"name": "crew-tablet"})
	require.Equal(t, http.StatusCreated, status, body)
	raw := data(t, body)["key"].(string)

	// The new key authenticates, but lacks the admin scope.
	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/api/v1/admin/keys", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+raw)
	status, _ = ts.send(t, req)
	assert.Equal(t, http.StatusForbidden, status)

	req, err = http.NewRequest(http.MethodGet, ts.server.URL+"/api/v1/uploads", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+raw)
	status, _ = ts.send(t, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuth_AllProtectedEndpoints_Reject401(t *testing.T) {
	ts := newTestServer(t)

	for _, ep := range []string{
		"GET /api/v1/uploads",
		"GET /api/v1/uploads/up-1",
		"POST /api/v1/invoices/preview",
		"GET /api/v1/moves",
	} {
		var method, path string
		fmt.Sscanf(ep, "%s %s", &method, &path)
		req, err := http.NewRequest(method, ts.server.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer sp_wrong_key_000000")

		status, body := ts.send(t, req)
		assert.Equal(t, http.StatusUnauthorized, status, ep)
		assert.Equal(t, "INVALID_TOKEN", errCode(body), ep)
	}
}
