package attachment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/chats/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_ByExtension(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("hi"))

	f, err := attachment.Load(path, 0)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, "text/plain", f.MimeType)
	assert.Equal(t, "data:text/plain;base64,aGk=", f.DataURL)
}

func TestLoad_SniffsUnknownExtension(t *testing.T) {
	path := writeFile(t, "picture", pngHeader)

	f, err := attachment.Load(path, 0)
	require.NoError(t, err)

	assert.Equal(t, "image/png", f.MimeType)
	assert.Contains(t, f.DataURL, "data:image/png;base64,")
}

func TestLoad_TooLarge(t *testing.T) {
	path := writeFile(t, "big.bin", make([]byte, 11))

	_, err := attachment.Load(path, 10)

	require.ErrorIs(t, err, attachment.ErrTooLarge)
}

func TestLoad_Missing(t *testing.T) {
	_, err := attachment.Load(filepath.Join(t.TempDir(), "nope.png"), 0)

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Directory(t *testing.T) {
	_, err := attachment.Load(t.TempDir(), 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/png", attachment.DetectMimeType("A.PNG", nil))
	assert.Equal(t, "application/pdf", attachment.DetectMimeType("doc.pdf", nil))
	assert.Equal(t, "text/plain", attachment.DetectMimeType("README", []byte("plain words")))
}

func TestParts(t *testing.T) {
	files := []attachment.File{
		{Name: "a.png", MimeType: "image/png", DataURL: "data:image/png;base64,AA=="},
		{Name: "b.pdf", MimeType: "application/pdf", DataURL: "data:application/pdf;base64,BB=="},
	}

	parts := attachment.Parts("look", files)

	assert.Equal(t, []content.Part{
		content.Text{Text: "look"},
		content.ImageURL{URL: "data:image/png;base64,AA=="},
		content.ImageURL{URL: "data:application/pdf;base64,BB=="},
	}, parts)
}

func TestParts_NoFiles(t *testing.T) {
	assert.Equal(t, []content.Part{content.Text{Text: "x"}}, attachment.Parts("x", nil))
}
