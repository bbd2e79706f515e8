// Package embedding runs the background worker loop of the job queue: lease
// a batch, compute vectors, store them, mark jobs done, and trigger relation
// discovery for each finished item.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/plugin/ai"
	"github.com/leafmark/leafmark/plugin/ai/relation"
	"github.com/leafmark/leafmark/plugin/markdown"
	"github.com/leafmark/leafmark/server/metrics"
	"github.com/leafmark/leafmark/store"
)

type Runner struct {
	store            *store.Store
	embeddingService ai.EmbeddingService
	discoverer       *relation.Discoverer
	exporter         *metrics.Exporter

	interval    time.Duration
	batchSize   int
	concurrency int
	leaseTTL    time.Duration
	model       string
}

// NewRunner creates an embedding worker runner.
func NewRunner(s *store.Store, embeddingService ai.EmbeddingService, exporter *metrics.Exporter, p *profile.Profile) *Runner {
	return &Runner{
		store:            s,
		embeddingService: embeddingService,
		discoverer:       relation.NewDiscoverer(s),
		exporter:         exporter,
		interval:         p.WorkerInterval,
		batchSize:        p.WorkerBatchSize,
		concurrency:      p.WorkerConcurrency,
		leaseTTL:         p.LeaseTTL,
		model:            p.EmbeddingModel,
	}
}

// Run starts the background loop. It returns when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	// Process once on startup
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce performs a single queue pass (also used for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.reclaimExpiredLeases(ctx)
	r.recordQueueDepth(ctx)

	for {
		jobs, err := r.store.LeaseEmbeddingJobs(ctx, r.batchSize, math.MaxInt32)
		if err != nil {
			slog.Error("failed to lease embedding jobs", "error", err)
			return
		}
		if len(jobs) == 0 {
			return
		}

		slog.Info("processing embedding jobs", "count", len(jobs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				r.processJob(gctx, job)
				return nil
			})
		}
		_ = g.Wait()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// processJob computes and stores the vector for one leased job. The provider
// call runs without any database lock held; ownership is re-checked when the
// job is marked complete.
func (r *Runner) processJob(ctx context.Context, job *store.EmbeddingJob) {
	item, err := r.store.GetItem(ctx, job.ItemID)
	if err != nil {
		r.failJob(ctx, job, fmt.Errorf("get item: %w", err))
		return
	}
	if item == nil {
		r.failJob(ctx, job, fmt.Errorf("item %s no longer exists", job.ItemID))
		return
	}

	text := buildEmbeddingText(item)
	providerStart := time.Now()
	vector, err := r.embeddingService.Embed(ctx, text)
	if err != nil {
		r.failJob(ctx, job, fmt.Errorf("compute embedding: %w", err))
		return
	}
	if r.exporter != nil {
		r.exporter.ProviderCall(time.Since(providerStart))
	}

	if _, err := r.store.UpsertItemEmbedding(ctx, &store.ItemEmbedding{
		ItemType:  item.Type,
		ItemID:    item.ID,
		OwnerID:   item.OwnerID,
		Embedding: vector,
		Model:     r.model,
	}); err != nil {
		r.failJob(ctx, job, fmt.Errorf("store embedding: %w", err))
		return
	}

	owned, err := r.store.CompleteEmbeddingJob(ctx, job.ID)
	if err != nil {
		slog.Error("failed to complete embedding job", "job", job.UID, "error", err)
		return
	}
	if !owned {
		// The lease expired mid-flight and the job was handed to another
		// worker. The stored vector is the same either way; skip discovery
		// and let the new owner finish.
		slog.Warn("lost lease before completion", "job", job.UID)
		return
	}
	if r.exporter != nil {
		r.exporter.JobCompleted(time.Since(time.Unix(job.StartedTs, 0)))
	}

	edges, err := r.discoverer.Discover(ctx, item.OwnerID, item.ID)
	if err != nil {
		// The embedding is stored and the job complete; discovery can be
		// repaired later with a backfill.
		slog.Warn("relation discovery failed", "item", item.ID.String(), "error", err)
		return
	}
	if r.exporter != nil {
		r.exporter.RelationsDiscovered(edges)
	}
	slog.Debug("embedding job finished", "job", job.UID, "edges", edges)
}

func (r *Runner) failJob(ctx context.Context, job *store.EmbeddingJob, jobErr error) {
	failed, err := r.store.FailEmbeddingJob(ctx, job.ID, jobErr)
	if err != nil {
		slog.Error("failed to record job failure", "job", job.UID, "error", err)
		return
	}
	if failed == nil {
		slog.Warn("lost lease before failure could be recorded", "job", job.UID)
		return
	}
	terminal := failed.Status == store.JobStatusFailed
	if r.exporter != nil {
		r.exporter.JobFailed(terminal)
	}
	if terminal {
		slog.Error("embedding job terminally failed",
			"job", job.UID, "retries", failed.RetryCount, "error", jobErr)
	} else {
		slog.Warn("embedding job requeued",
			"job", job.UID, "retries", failed.RetryCount, "error", jobErr)
	}
}

func (r *Runner) reclaimExpiredLeases(ctx context.Context) {
	reclaimed, err := r.store.ResetExpiredEmbeddingJobs(ctx, r.leaseTTL)
	if err != nil {
		slog.Error("failed to reset expired leases", "error", err)
		return
	}
	if reclaimed > 0 {
		slog.Warn("reclaimed expired job leases", "count", reclaimed)
		if r.exporter != nil {
			r.exporter.LeasesExpired(reclaimed)
		}
	}
}

func (r *Runner) recordQueueDepth(ctx context.Context) {
	if r.exporter == nil {
		return
	}
	status := store.JobStatusPending
	pending, err := r.store.ListEmbeddingJobs(ctx, &store.FindEmbeddingJob{Status: &status})
	if err != nil {
		slog.Warn("failed to measure queue depth", "error", err)
		return
	}
	r.exporter.SetQueueDepth(len(pending))
}

// buildEmbeddingText assembles the text sent to the embedding provider:
// title plus markdown-stripped content, truncated to the model input limit.
func buildEmbeddingText(item *store.Item) string {
	parts := []string{}
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if content := markdown.ToPlainText(item.Content); content != "" {
		parts = append(parts, content)
	}
	text := strings.Join(parts, "\n")
	// BAAI/bge-m3 accepts up to 8192 tokens; stay well under it. Truncate
	// on a rune boundary so the provider never sees a split UTF-8 sequence.
	if len(text) > 8000 {
		cut := 8000
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
