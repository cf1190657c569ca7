package survey

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// UploadRequest describes a direct PUT of a local file to a signed URL.
type UploadRequest struct {
	URL         string
	ContentType string
	Body        io.Reader
	Size        int64
	// Progress, if set, receives whole percentages in [0,100] as bytes are
	// handed to the transport. It always ends with exactly 100 on success.
	Progress func(percent int)
}

// Upload streams the exact bytes of req.Body to the signed URL. The signed URL
// carries its own credentials, so no bearer token is sent. Partial uploads are
// not resumed.
func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) error {
	if req.Size < 0 {
		return fmt.Errorf("upload size must not be negative, got %d", req.Size)
	}

	pr := &progressReader{r: req.Body, total: req.Size, report: req.Progress, last: -1}

	var body io.Reader = pr
	if req.Size == 0 {
		body = http.NoBody
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.URL, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.ContentLength = req.Size
	httpReq.Header.Set("Content-Type", req.ContentType)

	resp, err := c.transfer.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, resp.Body)
	}

	pr.finish()
	return nil
}

// progressReader reports floor(100*sent/total), clamped to [0,100], each time
// the whole percentage changes.
// The transport may read the body on its own goroutine, so emit is locked.
type progressReader struct {
	mu     sync.Mutex
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.emit(Percent(p.sent, p.total))
	}
	return n, err
}

func (p *progressReader) finish() {
	p.emit(100)
}

func (p *progressReader) emit(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.report == nil || pct == p.last {
		return
	}
	p.last = pct
	p.report(pct)
}

// Percent returns floor(100*sent/total) clamped to [0,100]. A zero total is
// reported as 0 until the transfer is acknowledged.
func Percent(sent, total int64) int {
	if total <= 0 || sent <= 0 {
		return 0
	}
	if sent >= total {
		return 100
	}
	return int(sent * 100 / total)
}
