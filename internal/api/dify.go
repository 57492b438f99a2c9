package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DifyFile is the workflow service's record of an uploaded document.
type DifyFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

type WorkflowRequest struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type WorkflowRun struct {
	WorkflowRunID string       `json:"workflow_run_id"`
	TaskID        string       `json:"task_id"`
	Data          WorkflowData `json:"data"`
}

type WorkflowData struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	Status      string         `json:"status"`
	Outputs     map[string]any `json:"outputs"`
	Error       string         `json:"error"`
	ElapsedTime float64        `json:"elapsed_time"`
	TotalTokens int            `json:"total_tokens"`
	TotalSteps  int            `json:"total_steps"`
	CreatedAt   int64          `json:"created_at"`
	FinishedAt  int64          `json:"finished_at"`
}

// FileInput builds the workflow input value referencing an uploaded file.
func FileInput(f DifyFile) map[string]any {
	return map[string]any{
		"transfer_method": "local_file",
		"upload_file_id":  f.ID,
		"type":            FileType(f.MimeType),
	}
}

// FileType maps a MIME type onto the workflow service's file categories.
func FileType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "document"
	}
}

// DifyUpload uploads a document through the backend proxy. Only 201
// Created counts as success.
func (c *Client) DifyUpload(ctx context.Context, u Upload, user string) (DifyFile, error) {
	const op = "workflow upload"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFilePart(w, "file", u); err != nil {
		return DifyFile{}, fmt.Errorf("%s: %w", op, err)
	}
	_ = w.WriteField("user", user)
	_ = w.WriteField("type", FileType(mimetype.Detect(u.Data).String()))
	if err := w.Close(); err != nil {
		return DifyFile{}, fmt.Errorf("%s: %w", op, err)
	}

	var out DifyFile
	err := c.raw(ctx, op, http.MethodPost, "/api/dify/files/upload", &buf, w.FormDataContentType(), http.StatusCreated, &out)
	return out, err
}

// RunWorkflow runs the workflow in blocking mode. Only 200 OK counts as
// success.
func (c *Client) RunWorkflow(ctx context.Context, in WorkflowRequest) (WorkflowRun, error) {
	const op = "workflow run"
	if in.ResponseMode == "" {
		in.ResponseMode = "blocking"
	}
	body, err := json.Marshal(in)
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("%s: %w", op, err)
	}

	var out WorkflowRun
	err = c.raw(ctx, op, http.MethodPost, "/api/dify/workflows/run", bytes.NewReader(body), "application/json", http.StatusOK, &out)
	return out, err
}

// raw sends a request whose response is not wrapped in the backend
// envelope. Any status other than want fails with the body as detail, and
// so does an envelope reporting failure.
func (c *Client) raw(ctx context.Context, op, method, path string, body io.Reader, contentType string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, nil), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(op, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}
	if e := envelopeFailure(op, resp.StatusCode, data); e != nil {
		return e
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// envelopeFailure detects the backend envelope with success set to false,
// which the proxy sends with a success status when it is not configured.
func envelopeFailure(op string, status int, body []byte) *Error {
	var env struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) != nil || env.Success == nil || *env.Success {
		return nil
	}
	e := &Error{Op: op, Kind: KindStatus, StatusCode: status, Message: env.Message}
	if e.Message == "" {
		e.Body = strings.TrimSpace(string(body))
	}
	return e
}
