package services

import (
	"context"
	"errors"
	"time"

	"listing-service/models"
	"listing-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OutputSink accepts the final ordered row sequence plus the template's
// field order and produces the deliverable file.
type OutputSink interface {
	Write(ctx context.Context, category string, batchID uuid.UUID, fieldOrder []string, rows []*models.Row) (string, error)
}

// EventPublisher publishes the batch-generated event after a successful run.
type EventPublisher interface {
	PublishBatchGenerated(ctx context.Context, event models.BatchGeneratedEvent) error
}

// ListingService defines the listing generation business logic.
type ListingService interface {
	GenerateByCategory(ctx context.Context, req *models.GenerateListingRequest) (*models.GenerateResult, *ServiceError)
	GetBatch(ctx context.Context, batchID uuid.UUID) ([]models.ListingLog, *ServiceError)
	SyncListedStatus(ctx context.Context) (int64, *ServiceError)
}

// Options tune a listing service instance.
type Options struct {
	// MaxFamilySize caps variation family membership; larger families are
	// excluded and reported for manual review.
	MaxFamilySize int
	// MapConcurrency bounds the parallel row-mapping stage.
	MapConcurrency int
}

type listingServiceImpl struct {
	candidates repository.CandidateRepository
	templates  repository.TemplateRepository
	logs       repository.ListingLogRepository
	resolver   *FamilyResolver
	mapper     *RecordMapper
	assembler  *OutputAssembler
	sink       OutputSink
	events     EventPublisher
	opts       Options
	logger     *zap.Logger
}

// NewListingService creates a new ListingService.
func NewListingService(
	candidates repository.CandidateRepository,
	templates repository.TemplateRepository,
	logs repository.ListingLogRepository,
	resolver *FamilyResolver,
	mapper *RecordMapper,
	assembler *OutputAssembler,
	sink OutputSink,
	events EventPublisher,
	opts Options,
	logger *zap.Logger,
) ListingService {
	if opts.MaxFamilySize <= 0 {
		opts.MaxFamilySize = 30
	}
	if opts.MapConcurrency <= 0 {
		opts.MapConcurrency = 8
	}
	return &listingServiceImpl{
		candidates: candidates,
		templates:  templates,
		logs:       logs,
		resolver:   resolver,
		mapper:     mapper,
		assembler:  assembler,
		sink:       sink,
		events:     events,
		opts:       opts,
		logger:     logger,
	}
}

// mapTask is one row to produce: a record in its family context. Tasks keep
// their index so parallel mapping restores input order before assembly.
type mapTask struct {
	record     *models.SKURecord
	family     *models.Family
	role       models.RelationshipType
	familyRank int
	memberRank int
}

// GenerateByCategory runs the full pipeline for one category. Run state
// (batch id, generation timestamp, accumulated failures) lives in explicit
// values, so concurrent runs for different categories do not interfere.
func (s *listingServiceImpl) GenerateByCategory(ctx context.Context, req *models.GenerateListingRequest) (*models.GenerateResult, *ServiceError) {
	batchID := uuid.New()
	generatedAt := time.Now().UTC()
	failures := models.FailureReport{}

	tpl, err := s.templates.FindByCategory(ctx, req.Category)
	if errors.Is(err, repository.ErrCategoryNotConfigured) {
		return nil, &ServiceError{StatusCode: 404, Message: "Category not configured: " + req.Category}
	}
	if err != nil {
		s.logger.Error("Failed to load template", zap.String("category", req.Category), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load category template"}
	}

	candidates, err := s.candidates.FindPending(ctx, req.Category)
	if err != nil {
		s.logger.Error("Failed to load candidates", zap.String("category", req.Category), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load listing candidates"}
	}
	if len(candidates) == 0 {
		return nil, &ServiceError{StatusCode: 404, Message: "No pending SKUs for category " + req.Category}
	}

	records := make(map[string]*models.SKURecord, len(candidates))
	for _, c := range candidates {
		records[c.MeowSKU] = c
	}

	// Resolution must complete fully before any mapping: parent and theme
	// context depend on the complete partition.
	resolved := s.resolver.Resolve(candidates, tpl)
	failures.Ambiguities = resolved.Ambiguities

	var tasks []mapTask
	singles, familyCount := 0, 0
	for rank, fam := range resolved.Families {
		if fam.Size() > s.opts.MaxFamilySize && !req.AllowOversized {
			oversized := &OversizedFamilyError{ParentMember: fam.ParentMember, Size: fam.Size(), Cap: s.opts.MaxFamilySize}
			s.logger.Warn("oversized family excluded", zap.String("parent_member", fam.ParentMember), zap.Int("size", fam.Size()))
			for _, sku := range fam.Members {
				failures.OversizedFamilies = append(failures.OversizedFamilies, models.SkippedSKU{
					SKU:    sku,
					Parent: fam.ParentSKU,
					Reason: oversized.Error(),
				})
			}
			continue
		}
		if fam.Singleton() {
			singles++
			tasks = append(tasks, mapTask{record: records[fam.ParentMember], family: fam, role: models.RelationshipSingle, familyRank: rank})
			continue
		}
		familyCount++
		tasks = append(tasks, mapTask{record: records[fam.ParentMember], family: fam, role: models.RelationshipParent, familyRank: rank})
		for i, sku := range fam.Members {
			tasks = append(tasks, mapTask{record: records[sku], family: fam, role: models.RelationshipChild, familyRank: rank, memberRank: i + 1})
		}
	}

	outcomes := s.mapAll(ctx, tasks, tpl, generatedAt)

	// Collect successes in task order; validation failures skip only the
	// failing SKU. A parent row with no surviving children is dropped, and
	// a failed parent row takes its whole family with it: a child row
	// referencing a parent absent from the file is not a valid upload.
	childSurvived := make(map[int]bool)
	parentFailed := make(map[int]bool)
	for i, t := range tasks {
		if t.role == models.RelationshipChild && outcomes[i].row != nil {
			childSurvived[t.familyRank] = true
		}
		if t.role == models.RelationshipParent && outcomes[i].err != nil {
			parentFailed[t.familyRank] = true
		}
	}

	var rows []*models.Row
	rowTasks := make(map[*models.Row]mapTask)
	for i, t := range tasks {
		if outcomes[i].err != nil {
			var mve *MappingValidationError
			if errors.As(outcomes[i].err, &mve) {
				failures.MappingFailures = append(failures.MappingFailures, models.SkippedSKU{
					SKU:    mve.SKU,
					Field:  mve.Field,
					Reason: mve.Reason,
				})
				continue
			}
			s.logger.Error("Row mapping failed", zap.String("sku", t.record.MeowSKU), zap.Error(outcomes[i].err))
			failures.MappingFailures = append(failures.MappingFailures, models.SkippedSKU{
				SKU:    t.record.MeowSKU,
				Reason: outcomes[i].err.Error(),
			})
			continue
		}
		row := outcomes[i].row
		if t.role == models.RelationshipParent && !childSurvived[t.familyRank] {
			continue
		}
		if t.role == models.RelationshipChild && parentFailed[t.familyRank] {
			failures.MappingFailures = append(failures.MappingFailures, models.SkippedSKU{
				SKU:    t.record.MeowSKU,
				Parent: t.family.ParentSKU,
				Reason: "parent row failed validation",
			})
			continue
		}
		row.FamilyRank = t.familyRank
		row.MemberRank = t.memberRank
		rows = append(rows, row)
		rowTasks[row] = t
	}

	ordered := s.assembler.Assemble(rows)

	result := &models.GenerateResult{
		BatchID:     batchID,
		Category:    req.Category,
		SingleCount: singles,
		FamilyCount: familyCount,
		TotalRows:   len(ordered),
		Failures:    failures,
		GeneratedAt: generatedAt,
	}

	if len(ordered) == 0 {
		// Partial-failure semantics: the manifest of skips is the result.
		s.logger.Warn("run produced no rows", zap.String("category", req.Category), zap.String("batch_id", batchID.String()))
		return result, nil
	}

	outputFile, err := s.sink.Write(ctx, req.Category, batchID, tpl.FieldOrder(), ordered)
	if err != nil {
		s.logger.Error("Failed to write output file", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to write listing file"}
	}
	result.OutputFile = outputFile

	// Log only after the complete row set exists: the log reflects fully
	// succeeded rows only.
	logged := s.persistLogs(ctx, ordered, rowTasks, batchID, &result.Failures)
	result.LoggedCount = logged

	s.publishBatchEvent(ctx, result)

	s.logger.Info("listing batch generated",
		zap.String("category", req.Category),
		zap.String("batch_id", batchID.String()),
		zap.Int("rows", result.TotalRows),
		zap.Int("logged", logged),
		zap.Int("singles", singles),
		zap.Int("families", familyCount),
	)
	return result, nil
}

type mapOutcome struct {
	row *models.Row
	err error
}

// mapAll maps rows in parallel with a bounded group. Outcomes are indexed
// by task, restoring deterministic order regardless of scheduling.
func (s *listingServiceImpl) mapAll(ctx context.Context, tasks []mapTask, tpl *models.TemplateRuleSet, generatedAt time.Time) []mapOutcome {
	outcomes := make([]mapOutcome, len(tasks))
	var g errgroup.Group
	g.SetLimit(s.opts.MapConcurrency)
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			outcomes[i] = mapOutcome{err: err}
			continue
		}
		g.Go(func() error {
			row, err := s.mapper.MapRow(t.record, t.family, t.role, tpl, generatedAt)
			outcomes[i] = mapOutcome{row: row, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// persistLogs writes one idempotent log entry per emitted real SKU.
// Conflicts mean an already-listed SKU slipped past candidate selection;
// they are surfaced in the failure report, never swallowed.
func (s *listingServiceImpl) persistLogs(ctx context.Context, rows []*models.Row, rowTasks map[*models.Row]mapTask, batchID uuid.UUID, failures *models.FailureReport) int {
	logged := 0
	for _, row := range rows {
		// Synthetic parent rows are not catalog SKUs and are not logged.
		if row.Relationship == models.RelationshipParent {
			continue
		}
		t := rowTasks[row]

		entry := &models.ListingLog{
			MeowSKU:        row.SKU,
			ParentSKU:      models.ParentSKUSingle,
			ListingBatchID: batchID,
			Status:         models.ListingStatusGenerated,
		}
		if row.Relationship == models.RelationshipChild {
			entry.ParentSKU = t.family.ParentSKU
			entry.VariationTheme = t.family.Theme
			attrs := make(map[string]interface{}, len(t.family.ThemeAttributes))
			for k, v := range t.family.VariationValues[row.SKU] {
				attrs[k] = v
			}
			entry.VariationAttributes = attrs
		}

		inserted, err := s.logs.InsertIfAbsent(ctx, entry)
		if err != nil {
			s.logger.Error("Failed to write listing log", zap.String("sku", row.SKU), zap.Error(err))
			failures.LogConflicts = append(failures.LogConflicts, models.SkippedSKU{SKU: row.SKU, Reason: err.Error()})
			continue
		}
		if !inserted {
			s.logger.Warn("listing log conflict, sku already logged", zap.String("sku", row.SKU))
			failures.LogConflicts = append(failures.LogConflicts, models.SkippedSKU{SKU: row.SKU, Reason: ErrListingLogConflict.Error()})
			continue
		}
		logged++
	}
	return logged
}

// publishBatchEvent emits the batch-generated event; failures are logged,
// not fatal.
func (s *listingServiceImpl) publishBatchEvent(ctx context.Context, result *models.GenerateResult) {
	if s.events == nil {
		return
	}
	event := models.BatchGeneratedEvent{
		EventType:   "listing_batch_generated",
		BatchID:     result.BatchID.String(),
		Category:    result.Category,
		TotalRows:   result.TotalRows,
		LoggedCount: result.LoggedCount,
		OutputFile:  result.OutputFile,
		Timestamp:   result.GeneratedAt,
	}
	if err := s.events.PublishBatchGenerated(ctx, event); err != nil {
		s.logger.Error("Failed to publish batch event", zap.String("batch_id", event.BatchID), zap.Error(err))
	}
}

// GetBatch returns the audit log entries of one run.
func (s *listingServiceImpl) GetBatch(ctx context.Context, batchID uuid.UUID) ([]models.ListingLog, *ServiceError) {
	entries, err := s.logs.FindByBatch(ctx, batchID)
	if err != nil {
		s.logger.Error("Failed to load batch", zap.String("batch_id", batchID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load batch"}
	}
	if len(entries) == 0 {
		return nil, &ServiceError{StatusCode: 404, Message: "Batch not found"}
	}
	return entries, nil
}

// SyncListedStatus flips GENERATED log entries to LISTED for SKUs now live
// on the marketplace.
func (s *listingServiceImpl) SyncListedStatus(ctx context.Context) (int64, *ServiceError) {
	updated, err := s.logs.MarkListed(ctx)
	if err != nil {
		s.logger.Error("Failed to sync listing status", zap.Error(err))
		return 0, &ServiceError{StatusCode: 500, Message: "Failed to sync listing status"}
	}
	s.logger.Info("listing status synced", zap.Int64("updated", updated))
	return updated, nil
}
