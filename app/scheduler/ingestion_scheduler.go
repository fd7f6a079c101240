// Package scheduler contains background workers for job ingestion and housekeeping
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/jobradar/app/middleware"
	"github.com/jobradar/jobradar/app/services"
	"github.com/jobradar/jobradar/config"
	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	"github.com/jobradar/jobradar/utils"
	"github.com/redis/go-redis/v9"
)

// IngestionScheduler periodically pulls active postings from the job provider,
// upserts them into the corpus, and refreshes the derived filter options cache.
type IngestionScheduler struct {
	provider    services.JobProviderClient
	jobRepo     repository.JobRepository
	auditRepo   repository.AuditLogRepository
	rc          *redis.Client
	cachePrefix string
	cfg         *config.FiltersConfig
	interval    time.Duration
	logger      *log.Logger
	logFile     *os.File
}

// NewIngestionScheduler creates a new ingestion scheduler instance
func NewIngestionScheduler(
	provider services.JobProviderClient,
	jobRepo repository.JobRepository,
	auditRepo repository.AuditLogRepository,
	rc *redis.Client,
	cachePrefix string,
	cfg *config.FiltersConfig,
	interval time.Duration,
) *IngestionScheduler {
	if interval <= 0 {
		interval = time.Hour
	}

	s := &IngestionScheduler{
		provider:    provider,
		jobRepo:     jobRepo,
		auditRepo:   auditRepo,
		rc:          rc,
		cachePrefix: cachePrefix,
		cfg:         cfg,
		interval:    interval,
	}

	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (s *IngestionScheduler) initSchedulerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "scheduler.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		s.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create scheduler log file in any candidate directory")
}

// Start launches the ingestion loop in a background goroutine and returns a stop function
func (s *IngestionScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

// Close releases the scheduler log file
func (s *IngestionScheduler) Close() {
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}

func (s *IngestionScheduler) runOnce(ctx context.Context) {
	started := utils.UTCNow()

	var fetched, upserted int64
	page := 1
	for {
		postings, hasMore, err := s.provider.FetchPage(ctx, page)
		if err != nil {
			s.logger.Printf("scheduler: provider fetch failed on page %d: %v", page, err)
			middleware.JobIngestionRunsTotal.WithLabelValues("failed").Inc()
			s.logIngestionRun(ctx, fmt.Sprintf("Ingestion run failed on page %d: %s", page, err.Error()), false)
			return
		}
		if len(postings) == 0 {
			break
		}
		fetched += int64(len(postings))

		jobs := make([]*models.Job, 0, len(postings))
		for _, p := range postings {
			jobs = append(jobs, mapProviderJob(p, started))
		}

		n, err := s.jobRepo.UpsertBatch(ctx, jobs)
		if err != nil {
			s.logger.Printf("scheduler: upsert failed on page %d: %v", page, err)
			middleware.JobIngestionRunsTotal.WithLabelValues("failed").Inc()
			s.logIngestionRun(ctx, fmt.Sprintf("Ingestion run failed on page %d: %s", page, err.Error()), false)
			return
		}
		upserted += n

		if !hasMore {
			break
		}
		page++
	}

	s.logger.Printf("scheduler: ingestion run completed, fetched=%d upserted=%d pages=%d in %s",
		fetched, upserted, page, time.Since(started))
	middleware.JobIngestionRunsTotal.WithLabelValues("completed").Inc()

	s.refreshDynamicOptions(ctx)

	s.logIngestionRun(ctx, fmt.Sprintf("Ingestion run completed: fetched=%d upserted=%d", fetched, upserted), true)
}

// refreshDynamicOptions rebuilds the derived select-option cache from a fresh sample
// so the field vocabulary reflects the postings that just arrived.
func (s *IngestionScheduler) refreshDynamicOptions(ctx context.Context) {
	if s.rc == nil {
		return
	}

	sample, err := s.jobRepo.Sample(ctx, s.cfg.OptionsSampleSize)
	if err != nil {
		s.logger.Printf("scheduler: dynamic options sample failed: %v", err)
		return
	}

	opts := filterengine.BuildDynamicOptions(sample, utils.UTCNow())
	payload, err := json.Marshal(opts)
	if err != nil {
		s.logger.Printf("scheduler: dynamic options marshal failed: %v", err)
		return
	}

	key := fmt.Sprintf("%s:%s", s.cachePrefix, utils.DynamicOptionsCacheKey)
	if err := s.rc.Set(ctx, key, payload, s.cfg.OptionsCacheTTL).Err(); err != nil {
		s.logger.Printf("scheduler: dynamic options cache write failed: %v", err)
		return
	}

	s.logger.Printf("scheduler: dynamic options refreshed from %d sampled jobs", len(sample))
}

func (s *IngestionScheduler) logIngestionRun(ctx context.Context, description string, success bool) {
	audit := &models.AuditLog{
		Action:      models.AuditActionJobIngestionRunCompleted,
		Description: &description,
		Success:     utils.ToPtr(success),
	}
	if err := s.auditRepo.Save(ctx, audit); err != nil {
		s.logger.Printf("scheduler: audit log write failed: %v", err)
	}
}

// mapProviderJob converts an upstream posting into the corpus model
func mapProviderJob(p services.ProviderJob, seenAt time.Time) *models.Job {
	job := &models.Job{
		UUID:              uuid.New(),
		ExternalID:        p.ID,
		Title:             p.Title,
		Organization:      p.Organization,
		URL:               p.URL,
		DescriptionText:   p.DescriptionText,
		AIExperienceLevel: p.AIExperienceLevel,
		Seniority:         p.AISeniority,
		EmploymentType:    p.EmploymentType,
		CitiesDerived:     p.CitiesDerived,
		CountriesDerived:  p.CountriesDerived,
		AIKeySkills:       p.AIKeySkills,
		RemoteDerived:     p.RemoteDerived,
		AISalaryMinValue:  p.AISalaryMinValue,
		AISalaryMaxValue:  p.AISalaryMaxValue,
		AISalaryCurrency:  p.AISalaryCurrency,
		AISalaryUnitText:  p.AISalaryUnitText,
		DatePosted:        p.DatePosted,
		FirstSeenAt:       seenAt,
	}
	return job
}
