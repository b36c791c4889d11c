package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"listing-service/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Redis keys for the async generation queue.
const (
	GenerateQueueKey = "listing:generate:queue"
	jobKeyFormat     = "listing:job:%s"
	jobTTL           = 24 * time.Hour
)

// GenerateJob is the queued form of an async generation request.
type GenerateJob struct {
	JobID          string `json:"job_id"`
	Category       string `json:"category"`
	AllowOversized bool   `json:"allow_oversized"`
}

// JobKey returns the Redis key holding a job's status document.
func JobKey(jobID string) string {
	return fmt.Sprintf(jobKeyFormat, jobID)
}

// StartGenerateWorker starts a background worker that consumes generation
// jobs from the Redis queue and runs the listing pipeline for each.
func StartGenerateWorker(ctx context.Context, rdb *redis.Client, svc ListingService, logger *zap.Logger) {
	if rdb == nil || svc == nil {
		logger.Warn("generate worker not started: missing dependencies")
		return
	}

	go func() {
		logger.Info("generate worker started", zap.String("queue", GenerateQueueKey))
		for {
			select {
			case <-ctx.Done():
				logger.Info("generate worker stopping")
				return
			default:
			}

			res, err := rdb.BLPop(ctx, 0*time.Second, GenerateQueueKey).Result()
			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded || ctx.Err() != nil {
					return
				}
				logger.Error("redis BLPop failed", zap.Error(err))
				time.Sleep(500 * time.Millisecond)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var job GenerateJob
			if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
				logger.Error("failed to parse queued job", zap.Error(err))
				continue
			}

			runJob(ctx, rdb, svc, job, logger)
		}
	}()
}

// runJob executes one queued generation and stores the outcome under the
// job key with a TTL.
func runJob(ctx context.Context, rdb *redis.Client, svc ListingService, job GenerateJob, logger *zap.Logger) {
	setJobStatus(ctx, rdb, job.JobID, map[string]interface{}{
		"status":   "processing",
		"category": job.Category,
	})

	result, svcErr := svc.GenerateByCategory(ctx, &models.GenerateListingRequest{
		Category:       job.Category,
		AllowOversized: job.AllowOversized,
	})
	if svcErr != nil {
		logger.Error("async generation failed",
			zap.String("job", job.JobID),
			zap.String("category", job.Category),
			zap.String("error", svcErr.Message),
		)
		setJobStatus(ctx, rdb, job.JobID, map[string]interface{}{
			"status":   "failed",
			"category": job.Category,
			"error":    svcErr.Message,
		})
		return
	}

	setJobStatus(ctx, rdb, job.JobID, map[string]interface{}{
		"status":   "done",
		"category": job.Category,
		"result":   result,
	})
}

func setJobStatus(ctx context.Context, rdb *redis.Client, jobID string, doc map[string]interface{}) {
	b, err := json.Marshal(doc)
	if err != nil {
		return
	}
	rdb.Set(ctx, JobKey(jobID), b, jobTTL)
}
