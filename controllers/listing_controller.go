package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"listing-service/models"
	"listing-service/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingController handles HTTP requests for listing generation.
type ListingController struct {
	listingService services.ListingService
	redis          *redis.Client
}

// NewListingController creates a new ListingController.
func NewListingController(listingService services.ListingService, rdb *redis.Client) *ListingController {
	return &ListingController{listingService: listingService, redis: rdb}
}

// GenerateListings handles POST /listings/generate. With ?async=true the
// run is queued and a job id returned for polling.
func (lc *ListingController) GenerateListings(ctx *gin.Context) {
	var req models.GenerateListingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if strings.ToLower(strings.TrimSpace(ctx.Query("async"))) == "true" {
		lc.enqueueGeneration(ctx, &req)
		return
	}

	result, svcErr := lc.listingService.GenerateByCategory(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// enqueueGeneration pushes an async job onto the Redis queue.
func (lc *ListingController) enqueueGeneration(ctx *gin.Context, req *models.GenerateListingRequest) {
	if lc.redis == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Async processing not available"})
		return
	}

	job := services.GenerateJob{
		JobID:          uuid.New().String(),
		Category:       req.Category,
		AllowOversized: req.AllowOversized,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue job"})
		return
	}

	rctx, cancel := contextWithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, _ := json.Marshal(map[string]interface{}{"status": "queued", "category": req.Category})
	if err := lc.redis.Set(rctx, services.JobKey(job.JobID), status, 24*time.Hour).Err(); err != nil {
		zap.L().Error("Failed to store job metadata", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue job"})
		return
	}
	if err := lc.redis.RPush(rctx, services.GenerateQueueKey, payload).Err(); err != nil {
		zap.L().Error("Failed to enqueue job", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue job"})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"job_id": job.JobID, "status": "queued"})
}

// GetJobStatus handles GET /listings/jobs/:id.
func (lc *ListingController) GetJobStatus(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Job ID required"})
		return
	}
	if lc.redis == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Async processing not available"})
		return
	}

	rctx, cancel := contextWithTimeout(ctx, 5*time.Second)
	defer cancel()

	val, err := lc.redis.Get(rctx, services.JobKey(id)).Result()
	if err == redis.Nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		zap.L().Error("Failed to get job status", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve job status"})
		return
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse job status"})
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

// GetBatch handles GET /listings/batches/:id.
func (lc *ListingController) GetBatch(ctx *gin.Context) {
	batchID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch ID"})
		return
	}

	entries, svcErr := lc.listingService.GetBatch(ctx.Request.Context(), batchID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"batch_id": batchID, "entries": entries, "count": len(entries)})
}

// SyncListedStatus handles POST /listings/sync-status.
func (lc *ListingController) SyncListedStatus(ctx *gin.Context) {
	updated, svcErr := lc.listingService.SyncListedStatus(ctx.Request.Context())
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"updated": updated})
}

func contextWithTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}
