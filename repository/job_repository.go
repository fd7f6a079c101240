// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// jobListOrder keeps page ordering stable across identical plans
const jobListOrder = "date_posted DESC NULLS LAST, id DESC"

// JobRepositoryImpl implements JobRepository interface
type JobRepositoryImpl struct {
	*BaseRepository[models.Job, models.JobFilter]
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *gorm.DB) JobRepository {
	return &JobRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Job, models.JobFilter](db),
	}
}

// SearchByPlan executes a compiled query plan and returns one page of matches plus the total count.
// Simple plans run as chained WHERE clauses; plans carrying a procedure call are routed through
// the filter_jobs database function, which handles array-typed columns and currency conversion.
func (r *JobRepositoryImpl) SearchByPlan(ctx context.Context, plan *filterengine.QueryPlan, limit, offset int) ([]*models.Job, int64, error) {
	if plan == nil {
		plan = &filterengine.QueryPlan{}
	}
	db := r.getDB(ctx)

	if plan.IsProcedure() {
		return r.searchByProcedure(ctx, db, plan.Procedure, limit, offset)
	}

	query := db.Model(&models.Job{})
	for _, p := range plan.Predicates {
		query = query.Where(p.Expr, p.Args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	var jobs []*models.Job
	err := query.Order(jobListOrder).
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search jobs: %w", err)
	}

	return jobs, total, nil
}

// CountByPlan returns only the number of matches for a compiled plan.
// The exact same plan drives both counting and page retrieval, so a count
// and the page it gates can never disagree on semantics.
func (r *JobRepositoryImpl) CountByPlan(ctx context.Context, plan *filterengine.QueryPlan) (int64, error) {
	if plan == nil {
		plan = &filterengine.QueryPlan{}
	}
	db := r.getDB(ctx)

	if plan.IsProcedure() {
		filtersJSON, ratesJSON, err := marshalProcedure(plan.Procedure)
		if err != nil {
			return 0, err
		}

		var count int64
		err = db.Raw(
			fmt.Sprintf("SELECT count(*) FROM %s(?::jsonb, ?::jsonb)", plan.Procedure.Name),
			filtersJSON, ratesJSON,
		).Scan(&count).Error
		if err != nil {
			return 0, fmt.Errorf("failed to count jobs via %s: %w", plan.Procedure.Name, err)
		}
		return count, nil
	}

	query := db.Model(&models.Job{})
	for _, p := range plan.Predicates {
		query = query.Where(p.Expr, p.Args...)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// CountNewSince counts plan matches first seen after the given checkpoint.
// The freshness badge is this number, frozen at apply time.
func (r *JobRepositoryImpl) CountNewSince(ctx context.Context, plan *filterengine.QueryPlan, since time.Time) (int64, error) {
	if plan == nil {
		plan = &filterengine.QueryPlan{}
	}
	db := r.getDB(ctx)

	if plan.IsProcedure() {
		filtersJSON, ratesJSON, err := marshalProcedure(plan.Procedure)
		if err != nil {
			return 0, err
		}

		var count int64
		err = db.Raw(
			fmt.Sprintf("SELECT count(*) FROM %s(?::jsonb, ?::jsonb) f WHERE f.first_seen_at > ?", plan.Procedure.Name),
			filtersJSON, ratesJSON, since,
		).Scan(&count).Error
		if err != nil {
			return 0, fmt.Errorf("failed to count new jobs via %s: %w", plan.Procedure.Name, err)
		}
		return count, nil
	}

	query := db.Model(&models.Job{}).Where("first_seen_at > ?", since)
	for _, p := range plan.Predicates {
		query = query.Where(p.Expr, p.Args...)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count new jobs: %w", err)
	}
	return count, nil
}

// searchByProcedure pages through the filter_jobs database function
func (r *JobRepositoryImpl) searchByProcedure(ctx context.Context, db *gorm.DB, proc *filterengine.ProcedureCall, limit, offset int) ([]*models.Job, int64, error) {
	filtersJSON, ratesJSON, err := marshalProcedure(proc)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = db.Raw(
		fmt.Sprintf("SELECT count(*) FROM %s(?::jsonb, ?::jsonb)", proc.Name),
		filtersJSON, ratesJSON,
	).Scan(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs via %s: %w", proc.Name, err)
	}

	var jobs []*models.Job
	err = db.Raw(
		fmt.Sprintf("SELECT * FROM %s(?::jsonb, ?::jsonb) ORDER BY %s LIMIT ? OFFSET ?", proc.Name, jobListOrder),
		filtersJSON, ratesJSON, limit, offset,
	).Scan(&jobs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search jobs via %s: %w", proc.Name, err)
	}

	return jobs, total, nil
}

// marshalProcedure serializes a procedure call's filters and rates for the database function
func marshalProcedure(proc *filterengine.ProcedureCall) ([]byte, []byte, error) {
	filtersJSON, err := json.Marshal(proc.Filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal procedure filters: %w", err)
	}

	rates := proc.ExchangeRates
	if rates == nil {
		rates = map[string]float64{}
	}
	ratesJSON, err := json.Marshal(rates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal exchange rates: %w", err)
	}

	return filtersJSON, ratesJSON, nil
}

// ByIDs retrieves jobs for a set of IDs
func (r *JobRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)

	var jobs []*models.Job
	err := db.Where("id IN ?", ids).Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find jobs by IDs: %w", err)
	}
	return jobs, nil
}

// UpsertBatch inserts postings keyed by external ID, refreshing postings already seen.
// Returns the number of rows the database reported as written.
func (r *JobRepositoryImpl) UpsertBatch(ctx context.Context, jobs []*models.Job) (int64, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "organization", "url", "description_text",
			"employment_type", "cities_derived", "countries_derived", "remote_derived",
			"date_posted", "ai_experience_level", "seniority", "ai_key_skills",
			"ai_salary_minvalue", "ai_salary_maxvalue", "ai_salary_currency", "ai_salary_unittext",
			"updated_at",
		}),
	}).CreateInBatches(jobs, 100)
	if result.Error != nil {
		err = fmt.Errorf("failed to upsert jobs: %w", result.Error)
		return 0, err
	}

	return result.RowsAffected, nil
}

// Sample returns the most recently ingested postings, used to derive dynamic filter options
func (r *JobRepositoryImpl) Sample(ctx context.Context, limit int) ([]*models.Job, error) {
	db := r.getDB(ctx)

	var jobs []*models.Job
	err := db.Order("first_seen_at DESC, id DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sample jobs: %w", err)
	}
	return jobs, nil
}

// DistinctSalaryCurrencies lists every currency code present in stored salary data
func (r *JobRepositoryImpl) DistinctSalaryCurrencies(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)

	var currencies []string
	err := db.Model(&models.Job{}).
		Distinct("ai_salary_currency").
		Where("ai_salary_currency IS NOT NULL AND ai_salary_currency <> ''").
		Pluck("ai_salary_currency", &currencies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list salary currencies: %w", err)
	}
	return currencies, nil
}
