package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"

	"github.com/kazz187/taskboard/pkg/cerr"
)

// MaxUploadSize is the largest file accepted for upload.
const MaxUploadSize = 25 << 20

// AllowedUploadTypes lists MIME types accepted for upload.
var AllowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// FileUpload is a binary body sent as multipart/form-data.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate checks size and type limits locally.
func (f *FileUpload) Validate() error {
	if f == nil || len(f.Data) == 0 {
		return cerr.Validation("file is empty")
	}
	if len(f.Data) > MaxUploadSize {
		return cerr.Validationf("file %s is %d bytes, limit is %d", f.Name, len(f.Data), MaxUploadSize)
	}
	if !AllowedUploadTypes[f.ContentType] {
		return cerr.Validationf("file type %q is not allowed", f.ContentType)
	}
	return nil
}

// encode writes f as a single "file" part and returns the body with its content type.
func (f *FileUpload) encode() (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(f.Name)))
	h.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}
