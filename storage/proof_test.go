package storage

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeExtension(t *testing.T) {
	assert.Equal(t, ".pdf", safeExtension("receipt.pdf"))
	assert.Equal(t, ".png", safeExtension("screenshot.PNG"))
	assert.Equal(t, "", safeExtension("no-extension"))
	assert.Equal(t, "", safeExtension("weird.averylongextension"))
	assert.Equal(t, "", safeExtension(""))
}

func TestDetectArchiveFormat(t *testing.T) {
	assert.Equal(t, formatZip, detectArchiveFormat(nil, "bundle.zip"))
	assert.Equal(t, formatRar, detectArchiveFormat(nil, "bundle.rar"))
	assert.Equal(t, formatZip, detectArchiveFormat([]byte{'P', 'K', 0x03, 0x04, 0, 0}, "upload.bin"))
	assert.Equal(t, formatRar, detectArchiveFormat([]byte{'R', 'a', 'r', '!', 0x1a, 0x07, 0x00, 0}, "upload.bin"))
	assert.Equal(t, formatRar, detectArchiveFormat([]byte{'R', 'a', 'r', '!', 0x1a, 0x07, 0x01, 0x00}, "upload.bin"))
	assert.Equal(t, "", detectArchiveFormat([]byte("plain text"), "email.txt"))
}

func TestSanitizeArchiveEntry(t *testing.T) {
	sanitized, err := sanitizeArchiveEntry("docs/license.pdf")
	require.NoError(t, err)
	assert.Equal(t, "docs/license.pdf", sanitized)

	sanitized, err = sanitizeArchiveEntry("docs\\license.pdf")
	require.NoError(t, err)
	assert.Equal(t, "docs/license.pdf", sanitized)

	sanitized, err = sanitizeArchiveEntry("./docs/../docs/license.pdf")
	require.NoError(t, err)
	assert.Equal(t, "docs/license.pdf", sanitized)

	sanitized, err = sanitizeArchiveEntry("")
	require.NoError(t, err)
	assert.Equal(t, "", sanitized)

	sanitized, err = sanitizeArchiveEntry("__MACOSX/._license.pdf")
	require.NoError(t, err)
	assert.Equal(t, "", sanitized)

	_, err = sanitizeArchiveEntry("../outside.txt")
	assert.Error(t, err)

	_, err = sanitizeArchiveEntry("docs/../../outside.txt")
	assert.Error(t, err)
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := &ProofStorage{baseDir: t.TempDir()}

	resolved, err := store.Resolve("abc123.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.baseDir, "abc123.pdf"), resolved)

	resolved, err = store.Resolve("/abc123.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.baseDir, "abc123.pdf"), resolved)

	_, err = store.Resolve("../escape.pdf")
	assert.Error(t, err)

	_, err = store.Resolve("")
	assert.Error(t, err)
}

func TestResolveRequiresLocalBackend(t *testing.T) {
	var store *ProofStorage
	_, err := store.Resolve("abc.pdf")
	assert.Error(t, err)
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestExtractZip(t *testing.T) {
	destDir := t.TempDir()
	data := buildZip(t, map[string]string{
		"email.txt":        "permission granted",
		"docs/receipt.pdf": "pdf bytes",
	})

	require.NoError(t, extractZip(data, destDir))

	content, err := os.ReadFile(filepath.Join(destDir, "email.txt"))
	require.NoError(t, err)
	assert.Equal(t, "permission granted", string(content))

	content, err = os.ReadFile(filepath.Join(destDir, "docs", "receipt.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(content))
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	destDir := t.TempDir()
	data := buildZip(t, map[string]string{"../evil.txt": "nope"})

	err := extractZip(data, destDir)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(destDir), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractZipRejectsEmptyArchive(t *testing.T) {
	destDir := t.TempDir()
	data := buildZip(t, map[string]string{})

	err := extractZip(data, destDir)
	assert.Error(t, err)
}

func TestExtractBundleCleansUpOnFailure(t *testing.T) {
	store := &ProofStorage{baseDir: t.TempDir()}

	_, err := store.extractBundle([]byte("not a zip"), formatZip)
	assert.Error(t, err)

	entries, err := os.ReadDir(store.baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractBundleReturnsFolderRef(t *testing.T) {
	store := &ProofStorage{baseDir: t.TempDir()}
	data := buildZip(t, map[string]string{"receipt.pdf": "pdf bytes"})

	ref, err := store.extractBundle(data, formatZip)
	require.NoError(t, err)
	require.NotEmpty(t, ref)
	assert.NotContains(t, ref, "/")

	content, err := os.ReadFile(filepath.Join(store.baseDir, ref, "receipt.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(content))
}
