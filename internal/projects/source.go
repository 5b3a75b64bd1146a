package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ErrNotFound indicates the dataset resource does not exist.
var ErrNotFound = errors.New("projects: dataset not found")

// maxDatasetBytes caps how much of a remote dataset is read.
const maxDatasetBytes = 8 << 20

// Source acquires the raw dataset.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// NewSource picks a source by URI scheme: http(s), gs, file, or a bare path.
func NewSource(uri string, timeout time.Duration) (Source, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("projects: empty dataset uri")
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// bare paths, including windows drive letters
		return FileSource{Path: uri}, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPSource(uri, timeout), nil
	case "gs":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return nil, fmt.Errorf("projects: invalid gcs uri %q", uri)
		}
		return &GCSSource{Bucket: u.Host, Object: object}, nil
	case "file":
		return FileSource{Path: u.Path}, nil
	default:
		return nil, fmt.Errorf("projects: unsupported dataset scheme %q", u.Scheme)
	}
}

// FileSource reads the dataset from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	return b, err
}

func (s FileSource) String() string { return "file:" + s.Path }

// HTTPSource fetches the dataset over HTTP.
type HTTPSource struct {
	URL  string
	http *http.Client
}

// NewHTTPSource builds an HTTP source with the given request timeout.
func NewHTTPSource(endpoint string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		URL:  strings.TrimSpace(endpoint),
		http: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.URL)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("projects: remote status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes))
}

func (s *HTTPSource) String() string { return s.URL }

// GCSSource reads the dataset from a Cloud Storage object.
type GCSSource struct {
	Bucket string
	Object string
	// NewClient overrides client construction (tests, custom credentials).
	NewClient func(ctx context.Context) (*storage.Client, error)
}

func (s *GCSSource) Fetch(ctx context.Context) ([]byte, error) {
	newClient := s.NewClient
	if newClient == nil {
		newClient = func(ctx context.Context) (*storage.Client, error) { return storage.NewClient(ctx) }
	}
	client, err := newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("projects: storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(s.Bucket).Object(s.Object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s)
	}
	if err != nil {
		return nil, fmt.Errorf("projects: open %s: %w", s, err)
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxDatasetBytes))
}

func (s *GCSSource) String() string { return "gs://" + s.Bucket + "/" + s.Object }
