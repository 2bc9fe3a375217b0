package arxiv

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/csheth/pneo/internal/debuglog"
)

const (
	partialSuffix = ".part"
	metaSuffix    = ".meta"
)

// stager downloads into <key>.part next to a <key>.meta sidecar holding the
// validators needed to resume with Range/If-Range. Both files are removed
// once the transfer completes.
type stager struct {
	dir       string
	client    *http.Client
	userAgent string
}

type stageMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	Total        int64     `json:"total"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newStager(dir string, client *http.Client, userAgent string) (*stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &stager{dir: dir, client: client, userAgent: userAgent}, nil
}

func (s *stager) Fetch(ctx context.Context, pdfURL string, progress func(received, total int64)) ([]byte, error) {
	if progress == nil {
		progress = func(int64, int64) {}
	}
	partialPath, metaPath := s.pathsFor(stageKey(pdfURL))

	meta, _ := readMeta(metaPath)
	if meta.URL != pdfURL {
		meta = stageMeta{}
		os.Remove(partialPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	var partialSize int64
	if info, err := os.Stat(partialPath); err == nil && info.Size() > 0 && (meta.ETag != "" || meta.LastModified != "") {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		} else {
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var appendExisting bool
	switch resp.StatusCode {
	case http.StatusOK:
		partialSize = 0
	case http.StatusPartialContent:
		appendExisting = partialSize > 0
		debuglog.Infof("[arxiv] resuming %s at byte %d", pdfURL, partialSize)
	case http.StatusRequestedRangeNotSatisfiable:
		s.discard(partialPath, metaPath)
		return nil, fmt.Errorf("pdf download failed: %s (staged copy discarded)", resp.Status)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pdf download failed: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}

	total := int64(0)
	if resp.ContentLength > 0 {
		total = partialSize + resp.ContentLength
	}
	meta = stageMeta{
		URL:          pdfURL,
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Total:        total,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return nil, err
	}

	if err := s.saveBody(resp.Body, partialPath, appendExisting, partialSize, total, progress); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(partialPath)
	if err != nil {
		return nil, err
	}
	if total > 0 && int64(len(data)) != total {
		return nil, fmt.Errorf("pdf download incomplete: %d of %d bytes", len(data), total)
	}
	s.discard(partialPath, metaPath)
	return data, nil
}

func (s *stager) saveBody(body io.Reader, partialPath string, appendExisting bool, offset, total int64, progress func(int64, int64)) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return err
	}
	progress(offset, total)
	counter := &progressWriter{received: offset, total: total, report: progress}
	if _, err := io.Copy(io.MultiWriter(file, counter), body); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *stager) discard(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			debuglog.Warnf("[arxiv] remove %s: %v", p, err)
		}
	}
}

func (s *stager) pathsFor(key string) (string, string) {
	return filepath.Join(s.dir, key+partialSuffix), filepath.Join(s.dir, key+metaSuffix)
}

type progressWriter struct {
	received int64
	total    int64
	report   func(int64, int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.received += int64(len(p))
	w.report(w.received, w.total)
	return len(p), nil
}

func stageKey(pdfURL string) string {
	if id := ExtractIdentifier(pdfURL); id != "" {
		return sanitizeKey(id)
	}
	sum := sha1.Sum([]byte(pdfURL))
	return hex.EncodeToString(sum[:])
}

func sanitizeKey(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, ":", "-")
	value = strings.ReplaceAll(value, "..", "-")
	return value
}

func readMeta(path string) (stageMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stageMeta{}, err
	}
	var meta stageMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return stageMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta stageMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
