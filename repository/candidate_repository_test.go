package repository_test

import (
	"context"
	"regexp"
	"testing"

	"listing-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestFindPending_ExcludesLoggedSKUs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCandidateRepository(gormDB)

	rows := sqlmock.NewRows([]string{"id", "meow_sku", "category_name", "product_name", "final_price", "available", "is_oversize"}).
		AddRow(1, "SKU-A", "Jewelry", "Hoop Earrings - Gold", 24.5, true, false).
		AddRow(2, "SKU-B", "Jewelry", "Hoop Earrings - Silver", 24.5, true, false)

	// Already-logged SKUs must be filtered out in the query itself, along
	// with unavailable, unpriced and oversize records.
	mock.ExpectQuery(regexp.QuoteMeta(`meow_sku NOT IN (SELECT "meow_sku" FROM "listing_logs")`)).
		WithArgs("Jewelry", true, false).
		WillReturnRows(rows)

	records, err := repo.FindPending(context.Background(), "Jewelry")
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "SKU-A", records[0].MeowSKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPending_NoCandidates(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCandidateRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sku_records"`)).
		WithArgs("Unknown", true, false).
		WillReturnRows(sqlmock.NewRows([]string{}))

	records, err := repo.FindPending(context.Background(), "Unknown")
	assert.NoError(t, err)
	assert.Empty(t, records)
}
