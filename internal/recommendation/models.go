package recommendation

import "time"

// ActionStep is one step in a recommendation's action plan.
type ActionStep struct {
	Step     int    `json:"step"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Citation string `json:"citation,omitempty"`
}

// Citation points at the evidence chunk a narrative claim rests on.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Page  int    `json:"page,omitempty"`
	Quote string `json:"quote,omitempty"`
}

// Content is the stored reduction narrative for one supplier benchmark. The
// anomaly scan flags content whose citation count falls below the configured
// evidence minimum.
type Content struct {
	BenchmarkID         string       `json:"benchmark_id"`
	Headline            string       `json:"headline"`
	ActionPlan          []ActionStep `json:"action_plan"`
	CaseStudySummary    string       `json:"case_study_summary"`
	ContractClause      string       `json:"contract_clause"`
	SourceCitations     []Citation   `json:"source_citations"`
	FeasibilityTimeline string       `json:"feasibility_timeline"`
	GeneratedAt         time.Time    `json:"generated_at"`
}

// UpsertRequest is the payload for caching recommendation content. Period
// attributes the write for lock checks; empty means the currently open one.
type UpsertRequest struct {
	Headline            string       `json:"headline"`
	ActionPlan          []ActionStep `json:"action_plan"`
	CaseStudySummary    string       `json:"case_study_summary"`
	ContractClause      string       `json:"contract_clause"`
	SourceCitations     []Citation   `json:"source_citations"`
	FeasibilityTimeline string       `json:"feasibility_timeline"`
	Period              string       `json:"period"`
}
