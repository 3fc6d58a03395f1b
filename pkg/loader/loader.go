// Package loader fetches part records from a SQL database or a JSONL export.
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

// Fetcher produces the full list of parts. Implementations must honour ctx
// cancellation by returning an error wrapping ctx.Err().
type Fetcher interface {
	FetchParts(ctx context.Context) ([]model.Part, error)
}

// Source is a Fetcher holding resources that must be released.
type Source interface {
	Fetcher
	io.Closer
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]model.Part, error)

// FetchParts calls f.
func (f FetcherFunc) FetchParts(ctx context.Context) ([]model.Part, error) {
	return f(ctx)
}

// FileSource reads parts from a JSONL export, one part per line.
type FileSource struct {
	Path   string
	Logger *zap.Logger
}

// FetchParts implements Fetcher.
func (s *FileSource) FetchParts(ctx context.Context) ([]model.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadPartsFromFile(s.Path, s.Logger)
}

// Close implements io.Closer.
func (s *FileSource) Close() error { return nil }

// LoadPartsFromFile reads parts directly from a specific JSONL file path.
// Malformed or invalid lines are skipped and logged.
func LoadPartsFromFile(path string, logger *zap.Logger) ([]model.Part, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no parts export found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parts file: %w", err)
	}
	defer file.Close()

	parts, err := ReadParts(file, logger.With(zap.String("file", path)))
	if err != nil {
		return nil, fmt.Errorf("error reading parts file: %w", err)
	}
	return parts, nil
}

// ReadParts decodes JSONL parts from r.
func ReadParts(r io.Reader, logger *zap.Logger) ([]model.Part, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var parts []model.Part
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024 // 1MB per line
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var part model.Part
		if err := json.Unmarshal(line, &part); err != nil {
			logger.Warn("skipping malformed line", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		if err := part.Validate(); err != nil {
			logger.Warn("skipping invalid part", zap.Int("line", lineNum), zap.Error(err))
			continue
		}
		parts = append(parts, part)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

// WriteParts encodes parts as JSONL.
func WriteParts(w io.Writer, parts []model.Part) error {
	enc := json.NewEncoder(w)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode part %s: %w", p.PartNo, err)
		}
	}
	return nil
}

// FromConfig opens the source the config points at: the JSONL file when set,
// the database otherwise.
func FromConfig(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.File != "" {
		return &FileSource{Path: cfg.File, Logger: logger.Named("file")}, nil
	}
	return Open(ctx, cfg.Driver, cfg.DSN,
		WithConnectTimeout(cfg.ConnectTimeout),
		WithLogger(logger.Named("sql")),
	)
}
