package writer_test

import (
	"context"
	"encoding/csv"
	"os"
	"testing"

	"listing-service/models"
	"listing-service/writer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWrite_ProducesOrderedCSV(t *testing.T) {
	dir := t.TempDir()
	w := writer.NewCSVWriter(dir, zap.NewNop())

	batchID := uuid.New()
	fieldOrder := []string{"item_sku", "parent_sku", "relationship_type"}
	rows := []*models.Row{
		{SKU: "PARENT-SKU-A", Cells: []models.Cell{
			{Field: "item_sku", Value: "PARENT-SKU-A"},
			{Field: "parent_sku", Value: ""},
			{Field: "relationship_type", Value: "Parent"},
		}},
		{SKU: "SKU-A", Cells: []models.Cell{
			{Field: "item_sku", Value: "SKU-A"},
			{Field: "parent_sku", Value: "PARENT-SKU-A"},
			{Field: "relationship_type", Value: "Child"},
		}},
	}

	path, err := w.Write(context.Background(), "Jewelry", batchID, fieldOrder, rows)
	assert.NoError(t, err)
	assert.Contains(t, path, "listing_jewelry_"+batchID.String()+".csv")

	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, fieldOrder, records[0])
	assert.Equal(t, []string{"PARENT-SKU-A", "", "Parent"}, records[1])
	assert.Equal(t, []string{"SKU-A", "PARENT-SKU-A", "Child"}, records[2])
}

func TestWrite_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	w := writer.NewCSVWriter(dir, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []*models.Row{{SKU: "SKU-A", Cells: []models.Cell{{Field: "item_sku", Value: "SKU-A"}}}}
	_, err := w.Write(ctx, "Jewelry", uuid.New(), []string{"item_sku"}, rows)
	assert.ErrorIs(t, err, context.Canceled)
}
