// Package businessflow contains the core business logic and use cases for search and saved-filter workflows
package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jobradar/jobradar/app/dto"
	"github.com/jobradar/jobradar/app/middleware"
	"github.com/jobradar/jobradar/app/services"
	"github.com/jobradar/jobradar/config"
	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	"github.com/jobradar/jobradar/utils"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

// JobSearchFlow handles filtered job search, field discovery, and export
type JobSearchFlow interface {
	SearchJobs(ctx context.Context, customerID uint, request *dto.SearchJobsRequest, metadata *ClientMetadata) (*dto.SearchJobsResult, error)
	GetJob(ctx context.Context, customerID uint, jobID uint) (*dto.JobDTO, error)
	ListFilterFields(ctx context.Context) (*dto.ListFilterFieldsResult, error)
	ExportJobs(ctx context.Context, customerID uint, request *dto.ExportJobsRequest, metadata *ClientMetadata) ([]byte, string, error)
}

// JobSearchFlowImpl implements the job search business flow
type JobSearchFlowImpl struct {
	jobRepo      repository.JobRepository
	customerRepo repository.CustomerRepository
	favoriteRepo repository.FavoriteRepository
	auditRepo    repository.AuditLogRepository
	rateService  services.ExchangeRateService
	cfg          *config.FiltersConfig
	rc           *redis.Client
	cachePrefix  string
}

// NewJobSearchFlow creates a new job search flow instance
func NewJobSearchFlow(
	jobRepo repository.JobRepository,
	customerRepo repository.CustomerRepository,
	favoriteRepo repository.FavoriteRepository,
	auditRepo repository.AuditLogRepository,
	rateService services.ExchangeRateService,
	cfg *config.FiltersConfig,
	rc *redis.Client,
	cachePrefix string,
) JobSearchFlow {
	return &JobSearchFlowImpl{
		jobRepo:      jobRepo,
		customerRepo: customerRepo,
		favoriteRepo: favoriteRepo,
		auditRepo:    auditRepo,
		rateService:  rateService,
		cfg:          cfg,
		rc:           rc,
		cachePrefix:  cachePrefix,
	}
}

// SearchJobs runs an ad-hoc condition list against the job corpus
func (jf *JobSearchFlowImpl) SearchJobs(ctx context.Context, customerID uint, request *dto.SearchJobsRequest, metadata *ClientMetadata) (*dto.SearchJobsResult, error) {
	conditions := jf.resolveConditions(request.Conditions, request.Encoded)

	if err := filterengine.ValidateConditions(conditions); err != nil {
		return nil, NewBusinessError("INVALID_CONDITIONS", "Filter conditions are invalid", err)
	}

	page, pageSize, err := jf.normalizePagination(request.Page, request.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination", err)
	}

	plan, err := jf.compilePlan(ctx, conditions)
	if err != nil {
		return nil, NewBusinessError("PLAN_COMPILATION_FAILED", "Failed to compile filter conditions", err)
	}

	jobs, total, err := jf.jobRepo.SearchByPlan(ctx, &plan, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SEARCH_FAILED", "Job search failed", err)
	}

	searchPath := "predicates"
	if plan.IsProcedure() {
		searchPath = "procedure"
	}
	middleware.FilterSearchesTotal.WithLabelValues(searchPath).Inc()

	result := jf.buildSearchResult(ctx, customerID, jobs, total, page, pageSize)
	result.ShareURL = filterengine.EncodeConditions(conditions)
	return result, nil
}

// GetJob retrieves a single job posting
func (jf *JobSearchFlowImpl) GetJob(ctx context.Context, customerID uint, jobID uint) (*dto.JobDTO, error) {
	job, err := jf.jobRepo.ByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, NewBusinessError("JOB_NOT_FOUND", "Job not found", ErrJobNotFound)
	}

	isFavorite, err := jf.favoriteRepo.Exists(ctx, customerID, jobID)
	if err != nil {
		isFavorite = false
	}

	result := ToJobDTO(*job, isFavorite)
	return &result, nil
}

// ListFilterFields returns the filterable field vocabulary with select options
// derived from a live sample. The derived options are cached; a cache miss
// rebuilds them from the most recently ingested postings.
func (jf *JobSearchFlowImpl) ListFilterFields(ctx context.Context) (*dto.ListFilterFieldsResult, error) {
	opts, err := jf.dynamicOptions(ctx)
	if err != nil {
		return nil, NewBusinessError("FIELD_DISCOVERY_FAILED", "Failed to derive filter options", err)
	}

	fields := filterengine.DeclareFields(opts)
	out := make([]dto.FilterFieldDTO, 0, len(fields))
	for _, f := range fields {
		operators := make([]string, 0, len(f.Operators))
		for _, op := range f.Operators {
			operators = append(operators, op.String())
		}

		var options []dto.FilterOption
		for _, o := range f.Options {
			options = append(options, dto.FilterOption{Value: o.Value, Label: o.Label})
		}

		out = append(out, dto.FilterFieldDTO{
			Name:        f.Name,
			Label:       f.Label,
			Type:        string(f.Type),
			Operators:   operators,
			MultiValued: f.MultiValued,
			IsSalary:    f.IsSalary,
			Options:     options,
		})
	}

	return &dto.ListFilterFieldsResult{
		Fields:      out,
		SampleSize:  opts.SampleSize,
		GeneratedAt: opts.GeneratedAt,
	}, nil
}

// ExportJobs writes all matches of a condition list into a spreadsheet
func (jf *JobSearchFlowImpl) ExportJobs(ctx context.Context, customerID uint, request *dto.ExportJobsRequest, metadata *ClientMetadata) ([]byte, string, error) {
	conditions := jf.resolveConditions(request.Conditions, request.Encoded)

	if err := filterengine.ValidateConditions(conditions); err != nil {
		return nil, "", NewBusinessError("INVALID_CONDITIONS", "Filter conditions are invalid", err)
	}

	plan, err := jf.compilePlan(ctx, conditions)
	if err != nil {
		return nil, "", NewBusinessError("PLAN_COMPILATION_FAILED", "Failed to compile filter conditions", err)
	}

	total, err := jf.jobRepo.CountByPlan(ctx, &plan)
	if err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Job export failed", err)
	}
	if total > int64(jf.cfg.MaxExportRows) {
		return nil, "", NewBusinessError("EXPORT_TOO_LARGE",
			fmt.Sprintf("Export of %d rows exceeds the limit of %d", total, jf.cfg.MaxExportRows), ErrExportTooLarge)
	}

	jobs, _, err := jf.jobRepo.SearchByPlan(ctx, &plan, jf.cfg.MaxExportRows, 0)
	if err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Job export failed", err)
	}

	content, err := buildJobsWorkbook(jobs)
	if err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to build spreadsheet", err)
	}

	msg := fmt.Sprintf("Exported %d jobs", len(jobs))
	jf.logSearchEvent(ctx, customerID, models.AuditActionJobsExported, msg, metadata)

	filename := fmt.Sprintf("jobs_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return content, filename, nil
}

// Private helper methods

// resolveConditions prefers the encoded (shareable URL) form when present.
// A corrupt encoded value degrades to an unfiltered view rather than an error.
func (jf *JobSearchFlowImpl) resolveConditions(conditions []models.FilterCondition, encoded string) []models.FilterCondition {
	if encoded != "" {
		return filterengine.DecodeConditions(encoded)
	}
	return conditions
}

func (jf *JobSearchFlowImpl) normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = jf.cfg.DefaultPageSize
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > jf.cfg.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

// compilePlan compiles conditions into a query plan, fetching exchange rates
// only when a condition carries a currency qualifier.
func (jf *JobSearchFlowImpl) compilePlan(ctx context.Context, conditions []models.FilterCondition) (filterengine.QueryPlan, error) {
	var rates map[string]float64

	if filterengine.HasCurrencyQualifier(conditions) {
		target := conditionCurrency(conditions)
		sources, err := jf.jobRepo.DistinctSalaryCurrencies(ctx)
		if err != nil {
			return filterengine.QueryPlan{}, err
		}
		rates, err = jf.rateService.RatesFor(ctx, target, sources)
		if err != nil {
			// Unresolvable rates degrade to identity conversion
			rates = map[string]float64{}
		}
	}

	return filterengine.Compile(conditions, rates)
}

func (jf *JobSearchFlowImpl) buildSearchResult(ctx context.Context, customerID uint, jobs []*models.Job, total int64, page, pageSize int) *dto.SearchJobsResult {
	favoriteIDs := make(map[uint]bool)
	if ids, err := jf.favoriteRepo.JobIDsByCustomer(ctx, customerID); err == nil {
		for _, id := range ids {
			favoriteIDs[id] = true
		}
	}

	out := make([]dto.JobDTO, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, ToJobDTO(*job, favoriteIDs[job.ID]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.SearchJobsResult{
		Jobs:       out,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// dynamicOptions loads the cached option snapshot or rebuilds it from a sample
func (jf *JobSearchFlowImpl) dynamicOptions(ctx context.Context) (filterengine.DynamicOptions, error) {
	cacheKey := redisKey(jf.cachePrefix, utils.DynamicOptionsCacheKey)

	if jf.rc != nil {
		if cached, err := jf.rc.Get(ctx, cacheKey).Bytes(); err == nil {
			var opts filterengine.DynamicOptions
			if err := json.Unmarshal(cached, &opts); err == nil {
				return opts, nil
			}
		}
	}

	sample, err := jf.jobRepo.Sample(ctx, jf.cfg.OptionsSampleSize)
	if err != nil {
		return filterengine.DynamicOptions{}, err
	}

	opts := filterengine.BuildDynamicOptions(sample, utils.UTCNow())

	if jf.rc != nil {
		if payload, err := json.Marshal(opts); err == nil {
			_ = jf.rc.Set(ctx, cacheKey, payload, jf.cfg.OptionsCacheTTL).Err()
		}
	}

	return opts, nil
}

func (jf *JobSearchFlowImpl) logSearchEvent(ctx context.Context, customerID uint, action, description string, metadata *ClientMetadata) {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:  &customerID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	_ = jf.auditRepo.Save(ctx, audit)
}

// conditionCurrency returns the first currency qualifier present in the set
func conditionCurrency(conditions []models.FilterCondition) string {
	for _, cond := range conditions {
		if cond.SalaryCurrency != nil && *cond.SalaryCurrency != "" {
			return strings.ToUpper(*cond.SalaryCurrency)
		}
	}
	return ""
}

// buildJobsWorkbook renders job postings as an xlsx workbook
func buildJobsWorkbook(jobs []*models.Job) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Jobs"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Title", "Organization", "URL", "Experience Level", "Seniority",
		"Employment Type", "Cities", "Countries", "Remote",
		"Salary Min", "Salary Max", "Currency", "Unit", "Date Posted",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, job := range jobs {
		values := []any{
			job.Title,
			job.Organization,
			job.URL,
			derefString(job.AIExperienceLevel),
			derefString(job.Seniority),
			strings.Join(job.EmploymentType, ", "),
			strings.Join(job.CitiesDerived, ", "),
			strings.Join(job.CountriesDerived, ", "),
			formatBool(job.RemoteDerived),
			derefFloat(job.AISalaryMinValue),
			derefFloat(job.AISalaryMaxValue),
			derefString(job.AISalaryCurrency),
			derefString(job.AISalaryUnitText),
			formatDate(job.DatePosted),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "yes"
	}
	return "no"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
