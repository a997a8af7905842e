// Package attachment loads local files and embeds them as base64 data URLs in
// the content parts of a user message.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/germanamz/ares/pkg/chats/content"
)

// DefaultMaxBytes is the largest file Load accepts when no limit is given.
const DefaultMaxBytes int64 = 10 << 20

// ErrTooLarge is returned for files over the size limit.
var ErrTooLarge = errors.New("attachment: file too large")

// File is a file selected for sending. It lives only until it is folded into
// a sent message.
type File struct {
	Name     string
	MimeType string
	DataURL  string
}

// Load reads the file at path and encodes it as a data URL. Files larger than
// maxBytes are rejected; maxBytes <= 0 means DefaultMaxBytes.
func Load(path string, maxBytes int64) (File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	f, err := os.Open(path) //nolint:gosec // path is chosen by the local user
	if err != nil {
		return File{}, fmt.Errorf("attachment: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return File{}, fmt.Errorf("attachment: stat: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("attachment: %s is a directory", path)
	}
	if info.Size() > maxBytes {
		return File{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, filepath.Base(path), info.Size(), maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("attachment: read: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return File{}, fmt.Errorf("%w: %s grew past %d bytes", ErrTooLarge, filepath.Base(path), maxBytes)
	}

	return FromBytes(filepath.Base(path), data), nil
}

// FromBytes builds a File from in-memory data. The MIME type comes from the
// name's extension, falling back to content sniffing.
func FromBytes(name string, data []byte) File {
	mt := DetectMimeType(name, data)
	return File{
		Name:     name,
		MimeType: mt,
		DataURL:  "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}

// DetectMimeType returns the media type of a file, without parameters.
func DetectMimeType(name string, data []byte) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		return base
	}
	return "application/octet-stream"
}

// Parts folds text and files into message content: one text part followed by
// one image_url part per file, in order.
func Parts(text string, files []File) []content.Part {
	parts := make([]content.Part, 0, len(files)+1)
	parts = append(parts, content.Text{Text: text})
	for _, f := range files {
		parts = append(parts, content.ImageURL{URL: f.DataURL})
	}
	return parts
}
