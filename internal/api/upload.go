package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ymghtzz/LMeterX-sub000/internal/metrics"
)

// File types accepted by the upload endpoint.
const (
	FileTypeCert    = "cert"
	FileTypeDataset = "dataset"
)

// Client-side size limits. Files over the limit are rejected before any
// bytes leave the process.
const (
	MaxCertSize    = 5 << 20   // 5 MiB
	MaxDatasetSize = 100 << 20 // 100 MiB
)

// UploadTimeout applies to multipart uploads.
const UploadTimeout = 2 * time.Minute

// UploadRequest describes one file upload.
type UploadRequest struct {
	FileType string // FileTypeCert or FileTypeDataset
	TaskID   string
	CertType string // "cert_file" or "key_file", cert uploads only
	Filename string
	Content  []byte
}

// UploadResult is the backend's record of a stored file.
type UploadResult struct {
	FileID string `json:"file_id"`
	Path   string `json:"path"`
}

// sizeLimit returns the client-side limit for a file type.
func sizeLimit(fileType string) int {
	if fileType == FileTypeCert {
		return MaxCertSize
	}
	return MaxDatasetSize
}

// validate checks an upload request before any network activity.
func (r *UploadRequest) validate() error {
	switch r.FileType {
	case FileTypeCert, FileTypeDataset:
	default:
		return fmt.Errorf("%w: unknown file type %q", ErrRequestSetup, r.FileType)
	}
	if err := ValidateTaskID(r.TaskID); err != nil {
		metrics.RecordUploadRejected("invalid_task_id")
		return err
	}
	if r.Filename == "" {
		return fmt.Errorf("%w: empty filename", ErrRequestSetup)
	}
	if len(r.Content) == 0 {
		return fmt.Errorf("%w: empty file content", ErrRequestSetup)
	}
	if limit := sizeLimit(r.FileType); len(r.Content) > limit {
		metrics.RecordUploadRejected("size_limit")
		return fmt.Errorf("%w: %s file is %d bytes, limit is %d",
			ErrRequestSetup, r.FileType, len(r.Content), limit)
	}
	return nil
}

// Upload sends a file to the backend. Uploads bypass the JSON envelope path:
// the body is a hand-built multipart form and no JSON content type is set.
func (c *Client) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSetup, err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSetup, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSetup, err)
	}

	params := url.Values{}
	params.Set("file_type", req.FileType)
	params.Set("task_id", req.TaskID)
	if req.CertType != "" {
		params.Set("cert_type", req.CertType)
	}
	params.Set("upload_id", uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("/upload")+"?"+params.Encode(), &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSetup, err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordAPIRequest(http.MethodPost, "/upload", "network_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(http.MethodPost, "/upload", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError("POST /upload", resp.StatusCode, body)
	}

	env := &Envelope{Data: body, Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	var result UploadResult
	if err := env.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload result: %w", err)
	}
	return &result, nil
}
