package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
)

var ErrBadRequest = errors.New("bad request")

const maxFormBytes = 1 << 20

// bind decodes a JSON or URL-encoded form body into dst. Form fields are
// matched by the json names of dst.
func bind(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: invalid json: %w", ErrBadRequest, err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: invalid form: %w", ErrBadRequest, err)
	}
	fields := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		fields[k] = r.PostForm.Get(k)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid form: %w", ErrBadRequest, err)
	}
	return nil
}
