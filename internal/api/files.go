package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/anyspecs/anyspecs/internal/models"
)

// Upload is one file part of a multipart upload.
type Upload struct {
	Name string
	Data []byte
}

// ReadUpload loads the file at path for upload.
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}

// ListFiles fetches the page of records at offset p.
func (c *Client) ListFiles(ctx context.Context, p int) ([]models.File, error) {
	var files []models.File
	q := url.Values{"p": {strconv.Itoa(p)}}
	if _, err := c.call(ctx, "list files", http.MethodGet, "/api/file/", q, nil, "", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// SearchFiles runs a server-side keyword search across all users' files.
func (c *Client) SearchFiles(ctx context.Context, keyword string) ([]models.File, error) {
	var files []models.File
	q := url.Values{"keyword": {keyword}}
	if _, err := c.call(ctx, "search files", http.MethodGet, "/api/file/search", q, nil, "", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// UploadFiles sends uploads as repeated "file" parts of a single request.
func (c *Client) UploadFiles(ctx context.Context, uploads ...Upload) error {
	if len(uploads) == 0 {
		return fmt.Errorf("upload files: nothing to upload")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, u := range uploads {
		if err := writeFilePart(w, "file", u); err != nil {
			return fmt.Errorf("upload files: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload files: %w", err)
	}
	_, err := c.call(ctx, "upload files", http.MethodPost, "/api/file", nil, &buf, w.FormDataContentType(), nil)
	return err
}

func (c *Client) DeleteFile(ctx context.Context, id int) error {
	_, err := c.call(ctx, "delete file", http.MethodDelete, "/api/file/"+strconv.Itoa(id), nil, nil, "", nil)
	return err
}

// Download streams the content behind link into w.
func (c *Client) Download(ctx context.Context, link string, w io.Writer) (int64, error) {
	const op = "download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FileURL(link), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.send(op, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(op, resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}
	return n, nil
}

// FetchContent returns the whole content behind link.
func (c *Client) FetchContent(ctx context.Context, link string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Download(ctx, link, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeFilePart is multipart.CreateFormFile with a detected content type.
func writeFilePart(w *multipart.Writer, field string, u Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(u.Name)))
	h.Set("Content-Type", mimetype.Detect(u.Data).String())
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(u.Data)
	return err
}
