// Package download fetches the sample spreadsheets used for local debugging.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alucardeht/spreadsheet-agent/internal/config"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

var log = logger.ForComponent("download")

var ErrMissingFile = errors.New("file is missing or empty")

type Options struct {
	BaseURL    string
	Files      []string
	DataDir    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL: cfg.Download.BaseURL,
		Files:   cfg.Download.Files,
		DataDir: cfg.DataDir,
		Timeout: cfg.Download.Timeout,
	}
}

type Result struct {
	File string `json:"file" yaml:"file"`
	URL  string `json:"url" yaml:"url"`
	Size int64  `json:"size" yaml:"size"`
}

type Downloader struct {
	opts   Options
	client *http.Client
}

func New(opts Options) *Downloader {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Downloader{opts: opts, client: client}
}

// Run downloads every configured file into the data directory and then
// validates them.
func (d *Downloader) Run(ctx context.Context) ([]Result, error) {
	if err := d.ensureDataDir(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(d.opts.Files))
	for _, name := range d.opts.Files {
		res, err := d.Fetch(ctx, name)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}

	if err := d.Validate(); err != nil {
		return results, err
	}
	log.Info("All files downloaded and validated.")
	return results, nil
}

func (d *Downloader) ensureDataDir() error {
	if _, err := os.Stat(d.opts.DataDir); err == nil {
		log.Info("Data directory already exists", "path", d.opts.DataDir)
		return nil
	}
	log.Info("Creating data directory", "path", d.opts.DataDir)
	return os.MkdirAll(d.opts.DataDir, 0755)
}

// Fetch streams one file to a temporary name next to its destination and
// renames it into place on success.
func (d *Downloader) Fetch(ctx context.Context, name string) (*Result, error) {
	src, err := url.JoinPath(d.opts.BaseURL, name)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", name, err)
	}
	dest := filepath.Join(d.opts.DataDir, filepath.Base(name))
	log.Info("Starting download", "url", src, "dest", dest)

	size, err := d.fetch(ctx, src, dest)
	if err != nil {
		log.Error("Download failed", "url", src, "error", err)
		return nil, err
	}

	log.Info("Download complete", "file", dest, "size", size, "human_size", humanize.Bytes(uint64(size)))
	return &Result{File: dest, URL: src, Size: size}, nil
}

func (d *Downloader) fetch(ctx context.Context, src, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("GET %s: unexpected status %s", src, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, err
	}
	return size, nil
}

// Validate checks that every configured file exists and is not empty.
func (d *Downloader) Validate() error {
	for _, name := range d.opts.Files {
		dest := filepath.Join(d.opts.DataDir, filepath.Base(name))
		info, err := os.Stat(dest)
		if err != nil || info.Size() == 0 {
			log.Error("File missing or empty", "file", dest)
			return fmt.Errorf("%s: %w", dest, ErrMissingFile)
		}
		log.Info("File validated", "file", dest, "size", info.Size())
	}
	return nil
}
