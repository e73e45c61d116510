package fetch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/zeebo/blake3"

	"ppabuild/internal/config"
	"ppabuild/internal/logging"
	"ppabuild/internal/services"
)

const stageName = "fetch"

// Result describes a completed download.
type Result struct {
	Path   string
	Size   int64
	Digest string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithProgressWriter renders a progress bar to w. A nil writer disables it.
func WithProgressWriter(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// Client downloads release artifacts over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
	progress  io.Writer
	logger    *slog.Logger
}

// NewClient builds a Client from the fetch configuration. The progress bar is
// only enabled when configured and stderr is a terminal.
func NewClient(cfg config.Fetch, logger *slog.Logger, opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Keep compressed tarballs byte-identical on disk.
	transport.DisableCompression = true

	c := &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		userAgent: cfg.UserAgent,
		logger:    logging.NewComponentLogger(logger, "fetch"),
	}
	if cfg.Progress && stderrIsTerminal() {
		c.progress = os.Stderr
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Fetch performs a single GET of url and stores the body as destDir/filename.
// The file only appears under its final name after the body has been fully
// written and synced; a failed or short download leaves nothing behind.
func (c *Client) Fetch(ctx context.Context, url, destDir, filename string) (Result, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return Result{}, services.Wrap(services.ErrFilesystem, stageName, "validate", fmt.Sprintf("invalid artifact name %q", filename), nil)
	}
	logger := logging.WithContext(ctx, c.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "request", url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger.Info("downloading release artifact",
		logging.String(logging.FieldEventType, "download_start"),
		logging.String("url", url),
	)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "GET", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "GET", fmt.Sprintf("%s returned %s", url, resp.Status), nil)
	}

	tmp, err := os.CreateTemp(destDir, "."+filename+".partial-*")
	if err != nil {
		return Result{}, services.Wrap(services.ErrFilesystem, stageName, "create", destDir, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	hasher := blake3.New()
	writers := []io.Writer{tmp, hasher}
	var bar *progressbar.ProgressBar
	if c.progress != nil {
		bar = newBar(c.progress, resp.ContentLength, filename)
		writers = append(writers, bar)
	}

	n, err := io.Copy(io.MultiWriter(writers...), resp.Body)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return Result{}, services.Wrap(services.ErrFilesystem, stageName, "write", tmp.Name(), err)
		}
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "read body", url, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "read body",
			fmt.Sprintf("short body: got %d of %d bytes", n, resp.ContentLength), nil)
	}

	if err := tmp.Sync(); err != nil {
		return Result{}, services.Wrap(services.ErrFilesystem, stageName, "sync", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return Result{}, services.Wrap(services.ErrFilesystem, stageName, "chmod", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, services.Wrap(services.ErrFilesystem, stageName, "close", tmp.Name(), err)
	}
	final := filepath.Join(destDir, filename)
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return Result{}, services.Wrap(services.ErrFilesystem, stageName, "rename", final, err)
	}
	committed = true

	result := Result{
		Path:   final,
		Size:   n,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}
	logger.Info("release artifact downloaded",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.String("path", result.Path),
		logging.String("size", humanize.Bytes(uint64(result.Size))),
		logging.String("blake3", result.Digest),
		logging.Duration("download_duration", time.Since(start)),
	)
	return result, nil
}

func newBar(w io.Writer, size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// RenderURL expands a source URL template. The template sees .Package and
// .Version; unknown keys are an error.
func RenderURL(tmpl, pkg, version string) (string, error) {
	t, err := template.New("source_url").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "source_url", "parse template", err)
	}
	var out strings.Builder
	data := map[string]string{"Package": pkg, "Version": version}
	if err := t.Execute(&out, data); err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "source_url", "render template", err)
	}
	return out.String(), nil
}
