package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"listing-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CSVWriter renders the final ordered row sequence into the deliverable
// upload file. The core stays agnostic to the file format; this sink writes
// CSV in the template's field order.
type CSVWriter struct {
	dir    string
	logger *zap.Logger
}

// NewCSVWriter creates a writer persisting files under dir.
func NewCSVWriter(dir string, logger *zap.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger}
}

// Write emits one file per batch, named by category and batch id, and
// returns its path.
func (w *CSVWriter) Write(ctx context.Context, category string, batchID uuid.UUID, fieldOrder []string, rows []*models.Row) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("listing_%s_%s.csv", strings.ToLower(category), batchID)
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(fieldOrder); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := cw.Write(row.Values()); err != nil {
			return "", fmt.Errorf("write row for %s: %w", row.SKU, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush output file: %w", err)
	}

	w.logger.Info("listing file written",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return path, nil
}
