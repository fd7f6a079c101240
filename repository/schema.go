// Package repository provides data access layer implementations using the repository pattern
package repository

import (
	"fmt"

	"github.com/jobradar/jobradar/models"
	"gorm.io/gorm"
)

// filterJobsProcedureSQL defines the server-side execution path for condition
// sets that simple column predicates cannot express: array-overlap tests on
// text[] columns and salary comparison normalized through an exchange-rate
// table. The filters argument is the compiled parameter list produced by
// filterengine; rates maps source currency to a multiplier into the
// comparison currency.
//
// Semantics mirror the in-memory evaluator exactly: unknown operators fail
// open, a salary condition with a pay-period qualifier treats a mismatched
// unit as a missing value, and negative operators match rows where the value
// is missing.
const filterJobsProcedureSQL = `
CREATE OR REPLACE FUNCTION filter_jobs(filters jsonb, rates jsonb)
RETURNS SETOF jobs
LANGUAGE plpgsql
STABLE
AS $fn$
DECLARE
    f         jsonb;
    col       text;
    op        text;
    val       jsonb;
    arr       text[];
    clause    text;
    where_sql text := 'TRUE';
    num_expr  text;
    present   text;
    period    text;
    currency  text;
BEGIN
    FOR f IN SELECT * FROM jsonb_array_elements(COALESCE(filters, '[]'::jsonb))
    LOOP
        col      := f->>'field';
        op       := f->>'operator';
        val      := f->'value';
        period   := f->>'salary_period';
        currency := f->>'salary_currency';
        clause   := NULL;

        IF (f->>'is_array_value')::boolean THEN
            CASE op
                WHEN 'contains' THEN
                    clause := format('EXISTS (SELECT 1 FROM unnest(%I) AS e WHERE e ILIKE %L)',
                                     col, '%' || (val #>> '{}') || '%');
                WHEN 'not_contains' THEN
                    clause := format('NOT EXISTS (SELECT 1 FROM unnest(%I) AS e WHERE e ILIKE %L)',
                                     col, '%' || (val #>> '{}') || '%');
                WHEN 'equals' THEN
                    clause := format('%L = ANY(COALESCE(%I, ''{}''::text[]))', val #>> '{}', col);
                WHEN 'not_equals' THEN
                    clause := format('NOT (%L = ANY(COALESCE(%I, ''{}''::text[])))', val #>> '{}', col);
                WHEN 'is_any_of' THEN
                    SELECT array_agg(x) INTO arr FROM jsonb_array_elements_text(val) AS x;
                    clause := format('COALESCE(%I, ''{}''::text[]) && %L::text[]', col, arr);
                WHEN 'is_not_any_of' THEN
                    SELECT array_agg(x) INTO arr FROM jsonb_array_elements_text(val) AS x;
                    clause := format('NOT (COALESCE(%I, ''{}''::text[]) && %L::text[])', col, arr);
                WHEN 'is_empty' THEN
                    clause := format('(%I IS NULL OR cardinality(%I) = 0)', col, col);
                WHEN 'is_not_empty' THEN
                    clause := format('(%I IS NOT NULL AND cardinality(%I) > 0)', col, col);
                ELSE
                    clause := 'TRUE';
            END CASE;

        ELSIF currency IS NOT NULL AND currency <> '' THEN
            num_expr := format('(%I * COALESCE(NULLIF(($1->>upper(ai_salary_currency))::numeric, 0), 1.0))', col);
            present  := format('%I IS NOT NULL', col);
            IF period IS NOT NULL AND period <> '' THEN
                present := present || format(' AND ai_salary_unittext IS NOT NULL AND upper(ai_salary_unittext) = %L',
                                             upper(period));
            END IF;

            CASE op
                WHEN 'equals' THEN
                    clause := format('(%s AND %s = %L::numeric)', present, num_expr, val #>> '{}');
                WHEN 'not_equals' THEN
                    clause := format('NOT (%s AND %s = %L::numeric)', present, num_expr, val #>> '{}');
                WHEN 'greater_than' THEN
                    clause := format('(%s AND %s > %L::numeric)', present, num_expr, val #>> '{}');
                WHEN 'less_than' THEN
                    clause := format('(%s AND %s < %L::numeric)', present, num_expr, val #>> '{}');
                WHEN 'between' THEN
                    clause := format('(%s AND %s BETWEEN %L::numeric AND %L::numeric)',
                                     present, num_expr, val ->> 0, val ->> 1);
                WHEN 'is_empty' THEN
                    clause := format('NOT (%s)', present);
                WHEN 'is_not_empty' THEN
                    clause := format('(%s)', present);
                WHEN 'contains' THEN
                    clause := 'FALSE';
                WHEN 'not_contains' THEN
                    clause := 'TRUE';
                WHEN 'is_any_of' THEN
                    clause := 'FALSE';
                WHEN 'is_not_any_of' THEN
                    clause := 'TRUE';
                ELSE
                    clause := 'TRUE';
            END CASE;

        ELSE
            CASE op
                WHEN 'contains' THEN
                    clause := format('%I ILIKE %L', col, '%' || (val #>> '{}') || '%');
                WHEN 'not_contains' THEN
                    clause := format('(%I IS NULL OR %I NOT ILIKE %L)', col, col, '%' || (val #>> '{}') || '%');
                WHEN 'equals' THEN
                    clause := format('%I = %L', col, val #>> '{}');
                WHEN 'not_equals' THEN
                    clause := format('(%I IS NULL OR %I <> %L)', col, col, val #>> '{}');
                WHEN 'is_any_of' THEN
                    SELECT array_agg(x) INTO arr FROM jsonb_array_elements_text(val) AS x;
                    clause := format('%I::text = ANY(%L::text[])', col, arr);
                WHEN 'is_not_any_of' THEN
                    SELECT array_agg(x) INTO arr FROM jsonb_array_elements_text(val) AS x;
                    clause := format('(%I IS NULL OR NOT %I::text = ANY(%L::text[]))', col, col, arr);
                WHEN 'greater_than' THEN
                    clause := format('%I > %L', col, val #>> '{}');
                WHEN 'less_than' THEN
                    clause := format('%I < %L', col, val #>> '{}');
                WHEN 'between' THEN
                    clause := format('%I BETWEEN %L AND %L', col, val ->> 0, val ->> 1);
                WHEN 'is_empty' THEN
                    clause := format('(%I IS NULL OR %I::text = '''')', col, col);
                WHEN 'is_not_empty' THEN
                    clause := format('(%I IS NOT NULL AND %I::text <> '''')', col, col);
                ELSE
                    clause := 'TRUE';
            END CASE;
        END IF;

        IF clause IS NOT NULL THEN
            where_sql := where_sql || ' AND ' || clause;
        END IF;
    END LOOP;

    RETURN QUERY EXECUTE 'SELECT * FROM jobs WHERE ' || where_sql
        USING COALESCE(rates, '{}'::jsonb);
END
$fn$;
`

// EnsureSchema migrates the model tables and installs the filter_jobs
// procedure. Safe to run on every startup.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Job{},
		&models.SavedFilter{},
		&models.FilterContext{},
		&models.Favorite{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := db.Exec(filterJobsProcedureSQL).Error; err != nil {
		return fmt.Errorf("failed to install filter_jobs procedure: %w", err)
	}

	return nil
}
