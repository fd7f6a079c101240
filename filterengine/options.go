package filterengine

import (
	"sort"
	"time"

	"github.com/jobradar/jobradar/models"
)

// MaxOptionsPerField caps how many select options a single field exposes.
// Value domains like city names are open-ended and provider-controlled, so
// only the most frequent values of the sample are surfaced.
const MaxOptionsPerField = 100

// DynamicOptions is an immutable snapshot of the select-option values observed
// in a live job sample. It is computed once per sample refresh, passed
// explicitly to consumers, and cached as JSON; it is never mutated in place.
type DynamicOptions struct {
	Options     map[string][]Option `json:"options"`
	SampleSize  int                 `json:"sample_size"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// OptionsFor returns the snapshot's options for one field, or nil when the
// field had no observed values.
func (o DynamicOptions) OptionsFor(field string) []Option {
	return o.Options[field]
}

// BuildDynamicOptions derives a snapshot from a sample of live job records.
// Options are ranked by observed frequency, ties broken lexicographically,
// and capped at MaxOptionsPerField, so the result is deterministic for a
// given sample.
func BuildDynamicOptions(jobs []*models.Job, now time.Time) DynamicOptions {
	counts := make(map[string]map[string]int)
	for _, spec := range fieldSpecs {
		if spec.dynamic {
			counts[spec.name] = make(map[string]int)
		}
	}

	for _, job := range jobs {
		for _, spec := range fieldSpecs {
			if !spec.dynamic {
				continue
			}
			switch v := spec.extract(job); v.kind {
			case kindText:
				counts[spec.name][v.text]++
			case kindList:
				for _, item := range v.list {
					if item != "" {
						counts[spec.name][item]++
					}
				}
			}
		}
	}

	options := make(map[string][]Option, len(counts))
	for field, byValue := range counts {
		if len(byValue) == 0 {
			continue
		}
		values := make([]string, 0, len(byValue))
		for value := range byValue {
			values = append(values, value)
		}
		sort.Slice(values, func(i, j int) bool {
			if byValue[values[i]] != byValue[values[j]] {
				return byValue[values[i]] > byValue[values[j]]
			}
			return values[i] < values[j]
		})
		if len(values) > MaxOptionsPerField {
			values = values[:MaxOptionsPerField]
		}
		opts := make([]Option, len(values))
		for i, value := range values {
			opts[i] = Option{Value: value, Label: value}
		}
		options[field] = opts
	}

	return DynamicOptions{
		Options:     options,
		SampleSize:  len(jobs),
		GeneratedAt: now.UTC(),
	}
}
