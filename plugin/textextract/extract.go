// Package textextract turns local documents into extraction results for the
// ingestion pipeline. Plain-text formats are read directly; PDF and Office
// formats go through an Apache Tika server when one is configured.
package textextract

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/lectern/lectern/plugin/ai/ingest"
)

// tikaMimeTypes are the formats handed off to the Tika server.
var tikaMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/rtf",
	"text/rtf",
}

// plainExtensions are read without any extraction backend.
var plainExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".vtt": true,
	".srt": true,
}

// Config holds the extraction configuration.
type Config struct {
	// TikaServerURL is the URL of the Tika server, empty disables it.
	TikaServerURL string
	Timeout       time.Duration
}

// ConfigFromEnv reads extraction config from LECTERN_TIKA_* variables.
func ConfigFromEnv() *Config {
	v := viper.New()
	v.SetEnvPrefix("lectern")
	v.AutomaticEnv()
	v.SetDefault("tika_timeout", "30s")

	return &Config{
		TikaServerURL: v.GetString("tika_url"),
		Timeout:       v.GetDuration("tika_timeout"),
	}
}

// Extractor converts files into ingestion-ready extraction results.
type Extractor struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewExtractor(config *Config, logger *slog.Logger) *Extractor {
	if config == nil {
		config = ConfigFromEnv()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// ExtractFile extracts one document. Extraction failures are reported as an
// unsuccessful result rather than an error so a bad file does not abort a
// batch; errors are reserved for unreadable paths.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (ingest.ExtractionResult, error) {
	name := filepath.Base(path)
	result := ingest.ExtractionResult{FileName: name}

	data, err := os.ReadFile(path)
	if err != nil {
		return result, errors.Wrapf(err, "read %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if plainExtensions[ext] {
		result.Success = true
		result.FullText = string(data)
		return result, nil
	}

	contentType := detectContentType(path, data)
	if !isTikaType(contentType) {
		e.logger.Warn("unsupported document type", "file", name, "content_type", contentType)
		return result, nil
	}
	if e.config.TikaServerURL == "" {
		e.logger.Warn("no Tika server configured, skipping document", "file", name)
		return result, nil
	}

	text, err := e.extractFromServer(ctx, data, contentType)
	if err != nil {
		e.logger.Warn("extraction failed", "file", name, "error", err)
		return result, nil
	}
	result.Success = true
	result.FullText = text
	return result, nil
}

// ExtractPath extracts a single file, or every supported file in a directory
// in name order.
func (e *Extractor) ExtractPath(ctx context.Context, path string) ([]ingest.ExtractionResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if !info.IsDir() {
		result, err := e.ExtractFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return []ingest.ExtractionResult{result}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", path)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var results []ingest.ExtractionResult
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		result, err := e.ExtractFile(ctx, filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Extractor) extractFromServer(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		e.config.TikaServerURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "tika server request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("tika server returned status %d: %s", resp.StatusCode, string(body))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	return strings.TrimSpace(string(text)), nil
}

func isTikaType(contentType string) bool {
	base := contentType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	for _, supported := range tikaMimeTypes {
		if strings.EqualFold(strings.TrimSpace(base), supported) {
			return true
		}
	}
	return false
}

func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
