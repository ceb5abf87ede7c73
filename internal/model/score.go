package model

// Category names used across scoring and recommendations.
const (
	CategoryConversion  = "Conversion"
	CategoryPerformance = "Performance"
	CategoryTrust       = "Trust"
	CategoryContent     = "Content"
	CategorySEO         = "SEO"
	CategorySecurity    = "Security"
)

// CategoryWeights are the fixed weights applied when aggregating category
// scores into the overall score. They sum to exactly 100.
var CategoryWeights = map[string]int{
	CategoryConversion:  35,
	CategoryPerformance: 20,
	CategoryTrust:       20,
	CategoryContent:     15,
	CategorySEO:         7,
	CategorySecurity:    3,
}

// CategoryOrder fixes the reporting order of the six categories.
var CategoryOrder = []string{
	CategoryConversion,
	CategoryPerformance,
	CategoryTrust,
	CategoryContent,
	CategorySEO,
	CategorySecurity,
}

// CategoryScore is one weighted dimension of the overall score.
type CategoryScore struct {
	// Name is one of the six category names.
	Name string `json:"name"`

	// Score is the category score in [0..100].
	Score int `json:"score"`

	// Weight is the fixed weight this category contributes.
	Weight int `json:"weight"`

	// Description is a short human-readable explanation of the category.
	Description string `json:"description,omitempty"`

	// Source records where the score came from (e.g. "booking_flow",
	// "trust_signals", "default") when derivable.
	Source string `json:"source,omitempty"`
}

// RecommendationStatus is the finding level of a recommendation.
type RecommendationStatus string

const (
	RecommendationPass    RecommendationStatus = "pass"
	RecommendationFail    RecommendationStatus = "fail"
	RecommendationWarning RecommendationStatus = "warning"
)

// Impact buckets for recommendations.
const (
	ImpactHigh   = "High"
	ImpactMedium = "Medium"
	ImpactLow    = "Low"
)

// Recommendation is a single pass/fail/warning finding tied to a category.
type Recommendation struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Status      RecommendationStatus `json:"status"`
	Impact      string               `json:"impact"`
	Category    string               `json:"category"`
}

// AuditResult is the structured scoring payload embedded in an Audit.
type AuditResult struct {
	// Categories holds the six weighted category scores in reporting order.
	Categories []CategoryScore `json:"categories"`

	// OverallScore is the weighted round-sum of the category scores.
	OverallScore int `json:"overall_score"`

	// ProjectedScore is the capped "what-if-fixed" score.
	ProjectedScore int `json:"projected_score"`

	// Recommendations are the findings attached to this audit.
	Recommendations []Recommendation `json:"recommendations,omitempty"`

	// Version identifies the scoring algorithm version used.
	Version string `json:"version,omitempty"`

	// Error carries the raw failure message on failed audits; score fields
	// are zero-valued in that case.
	Error string `json:"error,omitempty"`

	// Raw echoes the raw signals the scores were derived from, so a later
	// recalculation can rescore without re-crawling.
	Raw *RawResult `json:"raw,omitempty"`
}

// Category returns the named category score, or nil when absent.
func (r *AuditResult) Category(name string) *CategoryScore {
	for i := range r.Categories {
		if r.Categories[i].Name == name {
			return &r.Categories[i]
		}
	}
	return nil
}
