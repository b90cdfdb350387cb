// Package handler contains the HTTP handlers for the /api/v1 routes.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path params, query string, JSON or multipart body)
//  2. Call one service method
//  3. Write the envelope with response.JSON or response.Error
//
// Handlers hold no business rules; ownership checks, validation messages and
// asset cleanup all live in the service layer.
package handler

// REQUEST HELPERS:
// Handlers read three kinds of input: JSON bodies, multipart forms carrying
// media files, and query strings for list endpoints. The helpers below turn
// each into plain Go values for the services, and turn malformed input into
// *apperror.AppError so response.Error can answer with a 400.
//
// Body size limits are applied by the router (chi's RequestSize middleware),
// so a body that is too large surfaces here as *http.MaxBytesError and is
// answered with a 413.

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/service"
	"github.com/sakif/videotube/internal/storage"
)

// multipartMemory is how much of a multipart body is held in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

// decodeJSON reads a single JSON object into dst. An empty body is allowed
// when optional is true and leaves dst untouched.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return apperror.BadRequest("Could not read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if optional {
			return nil
		}
		return apperror.BadRequest("Request body is required")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperror.BadRequest("Invalid JSON body")
	}
	return nil
}

// isMultipart reports whether the request carries a multipart/form-data body.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// form is a parsed multipart request. Files opened through it are closed,
// and temporary files removed, by close.
type form struct {
	r      *http.Request
	opened []io.Closer
}

func readForm(r *http.Request) (*form, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, apperror.BadRequest("Expected a multipart/form-data body")
		}
		return nil, apperror.BadRequest("Malformed multipart body")
	}
	return &form{r: r}, nil
}

func (f *form) value(key string) string {
	return f.r.FormValue(key)
}

// optional returns nil when key was not sent at all.
func (f *form) optional(key string) *string {
	vals, ok := f.r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// file opens the first file sent under field. It returns nil when the field
// is absent or the file is empty.
func (f *form) file(field string) (*storage.Upload, error) {
	headers := f.r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Size == 0 {
		return nil, nil
	}
	fh := headers[0]
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	f.opened = append(f.opened, file)
	return upload(fh, file), nil
}

func upload(fh *multipart.FileHeader, body io.Reader) *storage.Upload {
	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        body,
	}
}

func (f *form) close() {
	for _, c := range f.opened {
		_ = c.Close()
	}
	if f.r.MultipartForm != nil {
		_ = f.r.MultipartForm.RemoveAll()
	}
}

// pageParams reads page, limit, sortBy and sortType from the query string.
// Values that are not numbers are treated as absent.
func pageParams(r *http.Request) service.PageParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return service.PageParams{
		Page:     page,
		Limit:    limit,
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
	}
}

// pageData shapes a page as {"<key>": [...], "pagination": {...}}.
func pageData[T any](key string, p model.Page[T]) map[string]any {
	return map[string]any{
		key:          p.Items,
		"pagination": p.Pagination,
	}
}

// currentUser returns the user RequireAuth attached to the request.
func currentUser(r *http.Request) (*model.User, error) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized(auth.UnauthorizedMessage)
	}
	return u, nil
}

// requireParam returns a 400 when a path parameter is blank.
func requireParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return "", apperror.BadRequest(name + " is required")
	}
	return v, nil
}
