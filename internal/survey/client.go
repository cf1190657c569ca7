package survey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// TokenProvider supplies the bearer token for each request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client is the interface for the survey upload/analysis backend.
type Client interface {
	PresignUpload(ctx context.Context, fileName, contentType string) (*PresignedUpload, error)
	Upload(ctx context.Context, req UploadRequest) error
	ProcessUpload(ctx context.Context, uploadID string) (*StatusResponse, error)
	UploadStatus(ctx context.Context, uploadID string) (*StatusResponse, error)
	ListUploads(ctx context.Context) ([]models.UploadJob, error)
	Analysis(ctx context.Context, uploadID string) ([]models.AnalysisItem, error)
}

// PresignedUpload is a single-use, time-limited write URL plus the job it belongs to.
type PresignedUpload struct {
	URL      string
	S3Key    string
	UploadID string
	FileName string
}

// StatusResponse is the backend's view of an upload job.
type StatusResponse struct {
	UploadID string
	Status   models.UploadStatus
	Message  string
}

// HTTPClient implements Client over the backend's REST API.
type HTTPClient struct {
	baseURL    string
	apiVersion string
	tokens     TokenProvider
	client     *http.Client
	transfer   *http.Client
}

// NewHTTPClient creates a survey client. timeout bounds JSON API calls;
// transferTimeout bounds the PUT to the signed URL.
func NewHTTPClient(baseURL, apiVersion string, tokens TokenProvider, timeout, transferTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		tokens:     tokens,
		client:     &http.Client{Timeout: timeout},
		transfer:   &http.Client{Timeout: transferTimeout},
	}
}

// PresignUpload requests a signed write URL. A file name without an extension
// gets one inferred from contentType.
func (c *HTTPClient) PresignUpload(ctx context.Context, fileName, contentType string) (*PresignedUpload, error) {
	fileName = WithExtension(fileName, contentType)

	var resp presignResponse
	err := c.doJSON(ctx, http.MethodPost, "/survey/presigned-url", presignRequest{
		FileName:    fileName,
		ContentType: contentType,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.PreSignedURL == "" || resp.UploadID == "" {
		return nil, fmt.Errorf("%w: presigned url or upload id missing", ErrBadResponse)
	}

	return &PresignedUpload{
		URL:      resp.PreSignedURL,
		S3Key:    resp.S3Key,
		UploadID: resp.UploadID,
		FileName: fileName,
	}, nil
}

// ProcessUpload tells the backend the object is written and ready for analysis.
func (c *HTTPClient) ProcessUpload(ctx context.Context, uploadID string) (*StatusResponse, error) {
	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodPost, "/survey/process-upload", processRequest{UploadID: uploadID}, &resp); err != nil {
		return nil, err
	}
	if resp.UploadID == "" {
		resp.UploadID = uploadID
	}
	return resp.toStatus()
}

func (c *HTTPClient) UploadStatus(ctx context.Context, uploadID string) (*StatusResponse, error) {
	var resp statusResponse
	p := "/survey/upload/status/" + url.PathEscape(uploadID)
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}
	if resp.UploadID == "" {
		resp.UploadID = uploadID
	}
	return resp.toStatus()
}

// ListUploads returns the current user's uploads.
func (c *HTTPClient) ListUploads(ctx context.Context) ([]models.UploadJob, error) {
	var resp []uploadSummary
	if err := c.doJSON(ctx, http.MethodGet, "/uploads/user", nil, &resp); err != nil {
		return nil, err
	}

	jobs := make([]models.UploadJob, 0, len(resp))
	for _, u := range resp {
		job, err := u.toJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Analysis fetches the manifest of a Completed upload. Nothing is cached.
func (c *HTTPClient) Analysis(ctx context.Context, uploadID string) ([]models.AnalysisItem, error) {
	var resp []analysisItem
	p := "/uploads/" + url.PathEscape(uploadID) + "/analysis"
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]models.AnalysisItem, 0, len(resp))
	for _, it := range resp {
		items = append(items, it.toModel())
	}
	return items, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, p string, body, out any) error {
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
	if err := c.setHeaders(ctx, req); err != nil {
		return err
	}
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

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrBadResponse, p, err)
	}
	return nil
}

func (c *HTTPClient) setHeaders(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("X-API-Version", c.apiVersion)
	}
	return nil
}

// WithExtension appends the extension registered for contentType when fileName
// has none. Unknown content types leave the name unchanged.
func WithExtension(fileName, contentType string) string {
	if path.Ext(fileName) != "" {
		return fileName
	}
	m := mimetype.Lookup(contentType)
	if m == nil {
		return fileName
	}
	return fileName + m.Extension()
}

// --- backend wire types ---

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	PreSignedURL string `json:"preSignedUrl"`
	S3Key        string `json:"s3Key"`
	UploadID     string `json:"uploadId"`
}

type processRequest struct {
	UploadID string `json:"uploadId"`
}

type statusResponse struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

func (r statusResponse) toStatus() (*StatusResponse, error) {
	st, err := models.ParseUploadStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &StatusResponse{UploadID: r.UploadID, Status: st, Message: r.Message}, nil
}

type uploadSummary struct {
	UploadID    string    `json:"uploadId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	S3Key       string    `json:"s3Key"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u uploadSummary) toJob() (models.UploadJob, error) {
	st, err := models.ParseUploadStatus(u.Status)
	if err != nil {
		return models.UploadJob{}, fmt.Errorf("%w: upload %s: %v", ErrBadResponse, u.UploadID, err)
	}
	return models.UploadJob{
		UploadID:    u.UploadID,
		Status:      st,
		Message:     u.Message,
		FileName:    u.FileName,
		ContentType: u.ContentType,
		S3Key:       u.S3Key,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.CreatedAt,
	}, nil
}

type analysisItem struct {
	ID        string  `json:"id"`
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Height    float64 `json:"heightCm"`
	Length    float64 `json:"lengthCm"`
	Width     float64 `json:"widthCm"`
	Notes     string  `json:"notes"`
	Attrs     []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"attributes"`
	Packaging []struct {
		MaterialID   string  `json:"materialId"`
		MaterialName string  `json:"materialName"`
		Quantity     float64 `json:"quantity"`
		Unit         string  `json:"unit"`
		VolumeM3     float64 `json:"packedVolumeM3"`
		LayerOrder   int     `json:"layerOrder"`
	} `json:"packagingPlan"`
}

func (a analysisItem) toModel() models.AnalysisItem {
	item := models.AnalysisItem{
		ID:        a.ID,
		Name:      a.ItemName,
		Quantity:  a.Quantity,
		TimeRange: models.TimeRange{Start: a.StartTime, End: a.EndTime},
		Dimensions: models.Dimensions{
			HeightCm: a.Height,
			LengthCm: a.Length,
			WidthCm:  a.Width,
		},
		Notes: a.Notes,
	}
	for _, kv := range a.Attrs {
		item.Attributes = append(item.Attributes, models.Attribute{Key: kv.Key, Value: kv.Value})
	}
	for _, p := range a.Packaging {
		item.PackagingPlan = append(item.PackagingPlan, models.PackagingStep{
			MaterialID:   p.MaterialID,
			MaterialName: p.MaterialName,
			Quantity:     p.Quantity,
			Unit:         p.Unit,
			VolumeM3:     p.VolumeM3,
			LayerOrder:   p.LayerOrder,
		})
	}
	// Packaging is applied innermost layer first.
	sort.SliceStable(item.PackagingPlan, func(i, j int) bool {
		return item.PackagingPlan[i].LayerOrder < item.PackagingPlan[j].LayerOrder
	})
	return item
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
