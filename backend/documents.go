package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/fwojciec/converse"
	conversejson "github.com/fwojciec/converse/json"
)

// Upload implements converse.DocumentService. The file is sent as the
// multipart field "file"; an empty description is omitted.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, description string) (converse.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return converse.Document{}, fmt.Errorf("backend: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return converse.Document{}, fmt.Errorf("backend: read %s: %w", filename, err)
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return converse.Document{}, fmt.Errorf("backend: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return converse.Document{}, fmt.Errorf("backend: %w", err)
	}

	dto, err := call[*conversejson.Document](ctx, c, request{
		method:      http.MethodPost,
		path:        "/document/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return converse.Document{}, err
	}
	if dto == nil {
		return converse.Document{}, fmt.Errorf("backend: upload %s: empty response", filename)
	}
	return dto.Domain(), nil
}

// List implements converse.DocumentService.
func (c *Client) List(ctx context.Context) ([]converse.Document, error) {
	dtos, err := call[[]conversejson.Document](ctx, c, request{
		method: http.MethodGet,
		path:   "/document/list",
	})
	if err != nil {
		return nil, err
	}
	return conversejson.Documents(dtos), nil
}

// Get implements converse.DocumentService.
func (c *Client) Get(ctx context.Context, id int64) (converse.Document, error) {
	path := fmt.Sprintf("/document/%d", id)
	dto, err := call[*conversejson.Document](ctx, c, request{
		method: http.MethodGet,
		path:   path,
	})
	if err != nil {
		return converse.Document{}, err
	}
	if dto == nil {
		return converse.Document{}, fmt.Errorf("backend: %s: %w", path, converse.ErrNotFound)
	}
	return dto.Domain(), nil
}

// Delete implements converse.DocumentService.
func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := call[string](ctx, c, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/document/%d", id),
	})
	return err
}
