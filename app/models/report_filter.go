package models

// ReportFilter narrows a fetched report list by location hierarchy and age
// bucket. Filtering is deliberately a pure function over the slice the store
// returned rather than a storage query, matching the search page semantics.
type ReportFilter struct {
	Division  string // empty or "All" matches every division
	District  string // empty or "All" matches every district
	AgeBucket int    // lower bound of a decade bucket (0, 10, ... 100); -1 matches all
}

// AllAges is the AgeBucket value that disables age narrowing.
const AllAges = -1

// AgeBucketFor returns the lower bound of the decade bucket an age falls in.
// Ages of 100 and above share the open-ended top bucket.
func AgeBucketFor(age int) int {
	if age < 0 {
		return 0
	}
	if age >= 100 {
		return 100
	}
	return (age / 10) * 10
}

// Matches reports whether a single report passes the filter.
func (f ReportFilter) Matches(r *Report) bool {
	if f.Division != "" && f.Division != "All" && r.Division != f.Division {
		return false
	}
	if f.District != "" && f.District != "All" && r.District != f.District {
		return false
	}
	if f.AgeBucket != AllAges && AgeBucketFor(r.Age) != f.AgeBucket {
		return false
	}
	return true
}

// Apply filters reports, preserving input order.
func (f ReportFilter) Apply(reports []Report) []Report {
	filtered := make([]Report, 0, len(reports))
	for i := range reports {
		if f.Matches(&reports[i]) {
			filtered = append(filtered, reports[i])
		}
	}
	return filtered
}
