package services_test

import (
	"context"
	"testing"

	"listing-service/models"
	"listing-service/repository"
	"listing-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Mock repositories ---

type mockCandidateRepo struct {
	records []*models.SKURecord
	err     error
}

func (m *mockCandidateRepo) FindPending(_ context.Context, _ string) ([]*models.SKURecord, error) {
	return m.records, m.err
}

type mockTemplateRepo struct {
	tpl *models.TemplateRuleSet
	err error
}

func (m *mockTemplateRepo) FindByCategory(_ context.Context, _ string) (*models.TemplateRuleSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tpl, nil
}

type mockLogRepo struct {
	entries map[string]*models.ListingLog
	marked  int64
}

func newMockLogRepo() *mockLogRepo {
	return &mockLogRepo{entries: make(map[string]*models.ListingLog)}
}

func (m *mockLogRepo) InsertIfAbsent(_ context.Context, entry *models.ListingLog) (bool, error) {
	if _, ok := m.entries[entry.MeowSKU]; ok {
		return false, nil
	}
	m.entries[entry.MeowSKU] = entry
	return true, nil
}

func (m *mockLogRepo) ListAlreadyLogged(_ context.Context, skus []string) ([]string, error) {
	var logged []string
	for _, sku := range skus {
		if _, ok := m.entries[sku]; ok {
			logged = append(logged, sku)
		}
	}
	return logged, nil
}

func (m *mockLogRepo) FindByBatch(_ context.Context, batchID uuid.UUID) ([]models.ListingLog, error) {
	var out []models.ListingLog
	for _, e := range m.entries {
		if e.ListingBatchID == batchID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockLogRepo) MarkListed(_ context.Context) (int64, error) {
	return m.marked, nil
}

// --- Mock sink and publisher ---

type mockSink struct {
	fieldOrder []string
	rows       []*models.Row
	writes     int
}

func (m *mockSink) Write(_ context.Context, category string, batchID uuid.UUID, fieldOrder []string, rows []*models.Row) (string, error) {
	m.fieldOrder = fieldOrder
	m.rows = rows
	m.writes++
	return "listing_" + category + ".csv", nil
}

type mockPublisher struct {
	events []models.BatchGeneratedEvent
}

func (m *mockPublisher) PublishBatchGenerated(_ context.Context, event models.BatchGeneratedEvent) error {
	m.events = append(m.events, event)
	return nil
}

func newService(
	candidates []*models.SKURecord,
	tpl *models.TemplateRuleSet,
	logs *mockLogRepo,
	sink *mockSink,
	pub *mockPublisher,
	opts services.Options,
) services.ListingService {
	normalizer := services.NewAttributeNormalizer(nil)
	return services.NewListingService(
		&mockCandidateRepo{records: candidates},
		&mockTemplateRepo{tpl: tpl},
		logs,
		services.NewFamilyResolver(normalizer, nil, zap.NewNop()),
		services.NewRecordMapper(normalizer, zap.NewNop()),
		services.NewOutputAssembler(),
		sink,
		pub,
		opts,
		zap.NewNop(),
	)
}

func variantRecords() []*models.SKURecord {
	return []*models.SKURecord{
		record("SKU-A", "Hoop Earrings - Gold", map[string]interface{}{"material": "sterling silver", "color_name": "Gold"}),
		record("SKU-B", "Hoop Earrings - Silver", map[string]interface{}{"material": "sterling silver", "color_name": "Silver"}),
		record("SKU-C", "Hoop Earrings - Rose", map[string]interface{}{"material": "sterling silver", "color_name": "Rose"}),
		record("SKU-X", "Pendant Necklace", map[string]interface{}{"material": "stainless steel"}),
	}
}

func TestGenerateByCategory_FullPipeline(t *testing.T) {
	logs := newMockLogRepo()
	sink := &mockSink{}
	pub := &mockPublisher{}
	svc := newService(variantRecords(), mappingTemplate(), logs, sink, pub, services.Options{})

	result, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry"})
	assert.Nil(t, svcErr)

	assert.Equal(t, 1, result.FamilyCount)
	assert.Equal(t, 1, result.SingleCount)
	assert.Equal(t, 5, result.TotalRows) // parent + 3 children + 1 single
	assert.Equal(t, 4, result.LoggedCount)
	assert.Equal(t, "listing_Jewelry.csv", result.OutputFile)
	assert.True(t, result.Failures.Empty())

	// Parent row first, then its children, then the single.
	assert.Equal(t, "PARENT-SKU-A", sink.rows[0].SKU)
	assert.Equal(t, models.RelationshipParent, sink.rows[0].Relationship)
	assert.Equal(t, "SKU-A", sink.rows[1].SKU)
	assert.Equal(t, "SKU-X", sink.rows[4].SKU)
	assert.Equal(t, mappingTemplate().FieldOrder(), sink.fieldOrder)

	// Children are logged with their family context, singles with the
	// single-product marker, synthetic parents not at all.
	assert.NotContains(t, logs.entries, "PARENT-SKU-A")
	if child := logs.entries["SKU-B"]; assert.NotNil(t, child) {
		assert.Equal(t, "PARENT-SKU-A", child.ParentSKU)
		assert.Equal(t, "Color", child.VariationTheme)
		assert.Equal(t, result.BatchID, child.ListingBatchID)
		assert.Equal(t, models.ListingStatusGenerated, child.Status)
	}
	if single := logs.entries["SKU-X"]; assert.NotNil(t, single) {
		assert.Equal(t, models.ParentSKUSingle, single.ParentSKU)
	}

	assert.Len(t, pub.events, 1)
	assert.Equal(t, "listing_batch_generated", pub.events[0].EventType)
	assert.Equal(t, result.BatchID.String(), pub.events[0].BatchID)
}

func TestGenerateByCategory_CategoryNotConfigured(t *testing.T) {
	failing := services.NewListingService(
		&mockCandidateRepo{},
		&mockTemplateRepo{err: repository.ErrCategoryNotConfigured},
		newMockLogRepo(),
		services.NewFamilyResolver(services.NewAttributeNormalizer(nil), nil, zap.NewNop()),
		services.NewRecordMapper(services.NewAttributeNormalizer(nil), zap.NewNop()),
		services.NewOutputAssembler(),
		&mockSink{},
		&mockPublisher{},
		services.Options{},
		zap.NewNop(),
	)

	_, svcErr := failing.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Unknown"})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestGenerateByCategory_NoCandidates(t *testing.T) {
	svc := newService(nil, mappingTemplate(), newMockLogRepo(), &mockSink{}, &mockPublisher{}, services.Options{})

	_, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry"})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestGenerateByCategory_OversizedFamilyExcluded(t *testing.T) {
	logs := newMockLogRepo()
	sink := &mockSink{}
	svc := newService(variantRecords(), mappingTemplate(), logs, sink, &mockPublisher{}, services.Options{MaxFamilySize: 2})

	result, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry"})
	assert.Nil(t, svcErr)

	// The 3-member family is over the cap; only the single survives.
	assert.Equal(t, 0, result.FamilyCount)
	assert.Equal(t, 1, result.SingleCount)
	assert.Equal(t, 1, result.TotalRows)
	assert.Len(t, result.Failures.OversizedFamilies, 3)
	assert.NotContains(t, logs.entries, "SKU-A")
}

func TestGenerateByCategory_OversizedOverride(t *testing.T) {
	svc := newService(variantRecords(), mappingTemplate(), newMockLogRepo(), &mockSink{}, &mockPublisher{}, services.Options{MaxFamilySize: 2})

	result, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry", AllowOversized: true})
	assert.Nil(t, svcErr)

	assert.Equal(t, 1, result.FamilyCount)
	assert.Equal(t, 5, result.TotalRows)
	assert.Empty(t, result.Failures.OversizedFamilies)
}

func TestGenerateByCategory_LogConflictSurfaced(t *testing.T) {
	logs := newMockLogRepo()
	logs.entries["SKU-X"] = &models.ListingLog{MeowSKU: "SKU-X", Status: models.ListingStatusGenerated}
	svc := newService(variantRecords(), mappingTemplate(), logs, &mockSink{}, &mockPublisher{}, services.Options{})

	result, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry"})
	assert.Nil(t, svcErr)

	assert.Equal(t, 3, result.LoggedCount)
	assert.Len(t, result.Failures.LogConflicts, 1)
	assert.Equal(t, "SKU-X", result.Failures.LogConflicts[0].SKU)
}

func TestGenerateByCategory_MappingFailureSkipsRow(t *testing.T) {
	records := variantRecords()
	records[3].ProductName = "" // required item_name empty for the single
	sink := &mockSink{}
	svc := newService(records, mappingTemplate(), newMockLogRepo(), sink, &mockPublisher{}, services.Options{})

	result, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry"})
	assert.Nil(t, svcErr)

	assert.Equal(t, 4, result.TotalRows)
	assert.Len(t, result.Failures.MappingFailures, 1)
	assert.Equal(t, "SKU-X", result.Failures.MappingFailures[0].SKU)
	assert.Equal(t, "item_name", result.Failures.MappingFailures[0].Field)
	for _, row := range sink.rows {
		assert.NotEqual(t, "SKU-X", row.SKU)
	}
}

func TestGenerateByCategory_ParentFailureExcludesFamily(t *testing.T) {
	// Titles that are nothing but a variant marker generalize to an empty
	// parent title, failing the parent row's required item_name. The whole
	// family must go with it: no child row may reference a parent SKU that
	// has no row in the file, and none of its members may be logged.
	records := []*models.SKURecord{
		record("SKU-A", "- Gold", map[string]interface{}{"material": "sterling silver", "color_name": "Gold"}),
		record("SKU-B", "- Silver", map[string]interface{}{"material": "sterling silver", "color_name": "Silver"}),
		record("SKU-X", "Pendant Necklace", map[string]interface{}{"material": "stainless steel"}),
	}
	logs := newMockLogRepo()
	sink := &mockSink{}
	svc := newService(records, mappingTemplate(), logs, sink, &mockPublisher{}, services.Options{})

	result, svcErr := svc.GenerateByCategory(context.Background(), &models.GenerateListingRequest{Category: "Jewelry"})
	assert.Nil(t, svcErr)

	assert.Equal(t, 1, result.TotalRows)
	assert.Len(t, sink.rows, 1)
	assert.Equal(t, "SKU-X", sink.rows[0].SKU)

	skipped := make(map[string]models.SkippedSKU)
	for _, f := range result.Failures.MappingFailures {
		skipped[f.SKU] = f
	}
	assert.Contains(t, skipped, "PARENT-SKU-A")
	assert.Equal(t, "item_name", skipped["PARENT-SKU-A"].Field)
	assert.Contains(t, skipped, "SKU-A")
	assert.Contains(t, skipped, "SKU-B")
	assert.Equal(t, "PARENT-SKU-A", skipped["SKU-B"].Parent)

	assert.NotContains(t, logs.entries, "SKU-A")
	assert.NotContains(t, logs.entries, "SKU-B")
	assert.Contains(t, logs.entries, "SKU-X")
}

func TestGetBatch(t *testing.T) {
	logs := newMockLogRepo()
	batchID := uuid.New()
	logs.entries["SKU-A"] = &models.ListingLog{MeowSKU: "SKU-A", ListingBatchID: batchID}
	svc := newService(nil, mappingTemplate(), logs, &mockSink{}, &mockPublisher{}, services.Options{})

	entries, svcErr := svc.GetBatch(context.Background(), batchID)
	assert.Nil(t, svcErr)
	assert.Len(t, entries, 1)

	_, svcErr = svc.GetBatch(context.Background(), uuid.New())
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestSyncListedStatus(t *testing.T) {
	logs := newMockLogRepo()
	logs.marked = 7
	svc := newService(nil, mappingTemplate(), logs, &mockSink{}, &mockPublisher{}, services.Options{})

	updated, svcErr := svc.SyncListedStatus(context.Background())
	assert.Nil(t, svcErr)
	assert.Equal(t, int64(7), updated)
}
