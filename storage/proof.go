package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	rardecode "github.com/nwaples/rardecode/v2"
)

const (
	maxProofBytes int64 = 50 * 1024 * 1024 // single proof upload guard

	formatZip = "zip"
	formatRar = "rar"
)

// ProofStorage keeps proof-of-permission attachments (permission emails,
// purchase receipts, screenshots, license grants) and hands back opaque
// reference strings. The catalogue only ever stores and echoes those
// references; it never reads the content.
//
// Two backends: MinIO/S3 when the MINIO_* environment is configured, a
// local directory otherwise. Zip and rar bundles are unpacked into a folder
// on the local backend so individual documents stay browsable; the MinIO
// backend stores bundles verbatim.
type ProofStorage struct {
	client  *minio.Client
	bucket  string
	baseDir string
}

// NewProofStorageFromEnv picks the backend from the environment.
func NewProofStorageFromEnv() (*ProofStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))

	if endpoint != "" && accessKey != "" && secretKey != "" && bucket != "" {
		useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: init minio client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("storage: check bucket: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("storage: create bucket: %w", err)
			}
		}

		return &ProofStorage{client: client, bucket: bucket}, nil
	}

	dir := strings.TrimSpace(os.Getenv("PROOF_STORAGE_DIR"))
	if dir == "" {
		dir = "./data/proofs"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve proof dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure proof dir: %w", err)
	}

	return &ProofStorage{baseDir: abs}, nil
}

// SaveProof stores one uploaded proof and returns its reference.
func (s *ProofStorage) SaveProof(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if s == nil {
		return "", errors.New("storage: proof storage not configured")
	}
	if fileHeader == nil {
		return "", errors.New("storage: proof file not provided")
	}
	if fileHeader.Size > 0 && fileHeader.Size > maxProofBytes {
		return "", fmt.Errorf("storage: proof size exceeds %d bytes", maxProofBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open proof: %w", err)
	}
	defer src.Close()

	var buffer bytes.Buffer
	written, err := io.Copy(&buffer, io.LimitReader(src, maxProofBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: read proof: %w", err)
	}
	if written > maxProofBytes {
		return "", fmt.Errorf("storage: proof size exceeds %d bytes", maxProofBytes)
	}
	data := buffer.Bytes()

	if s.client != nil {
		return s.saveObject(ctx, fileHeader, data)
	}

	if format := detectArchiveFormat(data, fileHeader.Filename); format != "" {
		return s.extractBundle(data, format)
	}
	return s.saveLocalFile(fileHeader.Filename, data)
}

func (s *ProofStorage) saveObject(ctx context.Context, fileHeader *multipart.FileHeader, data []byte) (string, error) {
	contentType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	objectName := path.Join("proofs", fmt.Sprintf("%s%s", uuid.NewString(), safeExtension(fileHeader.Filename)))

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := s.client.PutObject(uploadCtx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload proof: %w", err)
	}

	return objectName, nil
}

func (s *ProofStorage) saveLocalFile(originalName string, data []byte) (string, error) {
	ref := fmt.Sprintf("%s%s", uuid.NewString(), safeExtension(originalName))
	target := filepath.Join(s.baseDir, ref)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write proof: %w", err)
	}
	return ref, nil
}

// extractBundle unpacks a proof archive into its own folder and returns the
// folder reference.
func (s *ProofStorage) extractBundle(data []byte, format string) (string, error) {
	folder := uuid.NewString()
	destDir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create bundle dir: %w", err)
	}

	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(destDir)
		}
	}()

	var err error
	switch format {
	case formatZip:
		err = extractZip(data, destDir)
	case formatRar:
		err = extractRar(data, destDir)
	default:
		err = fmt.Errorf("storage: unsupported archive format")
	}
	if err != nil {
		return "", err
	}

	cleanup = false
	return folder, nil
}

// Resolve maps a reference to an absolute local path, rejecting traversal.
// Only valid for the local backend.
func (s *ProofStorage) Resolve(ref string) (string, error) {
	if s == nil || s.baseDir == "" {
		return "", errors.New("storage: local proof storage not configured")
	}

	trimmed := strings.TrimSpace(strings.TrimPrefix(ref, "/"))
	if trimmed == "" {
		return "", errors.New("storage: empty proof reference")
	}

	target := filepath.Join(s.baseDir, filepath.FromSlash(trimmed))
	if target != s.baseDir && !strings.HasPrefix(target, s.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: invalid proof reference %q", ref)
	}
	return target, nil
}

// PresignedURL builds a temporary download URL for a MinIO-backed proof.
func (s *ProofStorage) PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("storage: object proof storage not configured")
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	objectName := strings.TrimPrefix(strings.TrimSpace(ref), "/")
	if objectName == "" {
		return "", errors.New("storage: empty proof reference")
	}

	presignCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url, err := s.client.PresignedGetObject(presignCtx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign proof: %w", err)
	}
	return url.String(), nil
}

// Remove deletes the proof behind the reference, best effort.
func (s *ProofStorage) Remove(ctx context.Context, ref string) error {
	if s == nil {
		return nil
	}

	if s.client != nil {
		objectName := strings.TrimPrefix(strings.TrimSpace(ref), "/")
		if objectName == "" {
			return nil
		}
		removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return s.client.RemoveObject(removeCtx, s.bucket, objectName, minio.RemoveObjectOptions{})
	}

	target, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	return os.RemoveAll(target)
}

// ObjectBacked reports whether proofs live in MinIO rather than on disk.
func (s *ProofStorage) ObjectBacked() bool {
	return s != nil && s.client != nil
}

func safeExtension(filename string) string {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	if ext == "" || len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}

func detectArchiveFormat(data []byte, originalName string) string {
	switch strings.ToLower(strings.TrimSpace(filepath.Ext(originalName))) {
	case ".zip":
		return formatZip
	case ".rar":
		return formatRar
	}

	if len(data) >= 4 && bytes.Equal(data[:4], []byte{'P', 'K', 0x03, 0x04}) {
		return formatZip
	}
	if len(data) >= 7 && bytes.Equal(data[:7], []byte{'R', 'a', 'r', '!', 0x1a, 0x07, 0x00}) {
		return formatRar
	}
	if len(data) >= 8 && bytes.Equal(data[:8], []byte{'R', 'a', 'r', '!', 0x1a, 0x07, 0x01, 0x00}) {
		return formatRar
	}
	return ""
}

func extractZip(data []byte, destDir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("storage: parse archive: %w", err)
	}

	filesExtracted := 0
	for _, file := range reader.File {
		sanitized, err := sanitizeArchiveEntry(file.Name)
		if err != nil {
			return err
		}
		if sanitized == "" {
			continue
		}

		targetPath := filepath.Join(destDir, filepath.FromSlash(sanitized))
		if targetPath != destDir && !strings.HasPrefix(targetPath, destDir+string(os.PathSeparator)) {
			return fmt.Errorf("storage: archive entry escapes target dir: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return fmt.Errorf("storage: create dir %s: %w", sanitized, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("storage: prepare dir %s: %w", sanitized, err)
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("storage: open entry %s: %w", sanitized, err)
		}

		dst, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			rc.Close()
			return fmt.Errorf("storage: create file %s: %w", sanitized, err)
		}

		if _, err := io.Copy(dst, rc); err != nil {
			dst.Close()
			rc.Close()
			return fmt.Errorf("storage: write file %s: %w", sanitized, err)
		}

		dst.Close()
		rc.Close()
		filesExtracted++
	}

	if filesExtracted == 0 {
		return errors.New("storage: archive is empty")
	}
	return nil
}

func extractRar(data []byte, destDir string) error {
	rr, err := rardecode.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("storage: parse rar archive: %w", err)
	}

	filesExtracted := 0
	for {
		header, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("storage: read rar entry: %w", err)
		}

		sanitized, err := sanitizeArchiveEntry(header.Name)
		if err != nil {
			return err
		}
		if sanitized == "" {
			if !header.IsDir {
				if _, err := io.Copy(io.Discard, rr); err != nil {
					return fmt.Errorf("storage: discard rar entry: %w", err)
				}
			}
			continue
		}

		targetPath := filepath.Join(destDir, filepath.FromSlash(sanitized))
		if targetPath != destDir && !strings.HasPrefix(targetPath, destDir+string(os.PathSeparator)) {
			return fmt.Errorf("storage: archive entry escapes target dir: %s", header.Name)
		}

		if header.IsDir {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return fmt.Errorf("storage: create dir %s: %w", sanitized, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("storage: prepare dir %s: %w", sanitized, err)
		}

		dst, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("storage: create file %s: %w", sanitized, err)
		}

		if _, err := io.Copy(dst, rr); err != nil {
			dst.Close()
			return fmt.Errorf("storage: write file %s: %w", sanitized, err)
		}

		dst.Close()
		filesExtracted++
	}

	if filesExtracted == 0 {
		return errors.New("storage: archive is empty")
	}
	return nil
}

func sanitizeArchiveEntry(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", nil
	}

	normalized := strings.ReplaceAll(trimmed, "\\", "/")
	normalized = path.Clean(normalized)
	normalized = strings.TrimPrefix(normalized, "./")
	if normalized == "." || normalized == "" {
		return "", nil
	}
	if strings.HasPrefix(normalized, "../") {
		return "", fmt.Errorf("storage: archive entry %q uses parent traversal", name)
	}
	if strings.HasPrefix(strings.ToLower(normalized), "__macosx/") {
		return "", nil
	}
	return normalized, nil
}
