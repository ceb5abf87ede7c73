// Package scoring turns raw per-category signals into weighted category
// scores, an overall score and a projected score.
package scoring

import (
	"math"

	"github.com/stayscore/stayscore/internal/model"
)

// Version identifies the scoring algorithm. Bump when weights or derivation
// rules change so stored audits stay auditable.
const Version = "v1"

// Neutral defaults used when a signal is absent. Scoring never errors on
// partial data; it degrades to these instead.
const (
	defaultCategoryScore = 50
	defaultSecurityScore = 100
)

// ProjectedUplift is the fixed optimistic uplift applied for the
// "what-if-fixed" projection, capped at ProjectedCap.
const (
	ProjectedUplift = 25
	ProjectedCap    = 95
)

// checklistItemValue is the worth of one conversion checklist factor.
var checklistItemValue = int(math.Round(100.0 / 6.0))

// Score aggregates a raw analysis result into an AuditResult. raw may be nil
// or arbitrarily sparse; missing sub-signals fall back to neutral defaults.
func Score(raw *model.RawResult) *model.AuditResult {
	categories := []model.CategoryScore{
		conversionScore(raw),
		passthrough(model.CategoryPerformance, rawPerformance(raw), "performance_metrics",
			"Page speed and responsiveness"),
		trustScore(raw),
		passthrough(model.CategoryContent, rawContent(raw), "content_analysis",
			"Content depth and freshness"),
		passthrough(model.CategorySEO, rawSEO(raw), "seo_metrics",
			"Search visibility fundamentals"),
		passthrough(model.CategorySecurity, rawSecurity(raw), "security_checks",
			"Transport security and safe defaults"),
	}

	overall := Overall(categories)

	res := &model.AuditResult{
		Categories:     categories,
		OverallScore:   overall,
		ProjectedScore: Projected(overall),
		Version:        Version,
		Raw:            raw,
	}
	if raw != nil {
		res.Recommendations = raw.Recommendations
	}
	return res
}

// Overall computes the weighted round-sum of the category scores.
func Overall(categories []model.CategoryScore) int {
	sum := 0.0
	for _, c := range categories {
		sum += float64(c.Weight) * float64(c.Score)
	}
	return int(math.Round(sum / 100.0))
}

// Projected returns the capped "what-if-fixed" score.
func Projected(overall int) int {
	p := overall + ProjectedUplift
	if p > ProjectedCap {
		p = ProjectedCap
	}
	return p
}

// conversionScore averages a six-factor booking checklist with the inverse
// friction score. Absent booking-flow data degrades to the neutral default.
func conversionScore(raw *model.RawResult) model.CategoryScore {
	cs := model.CategoryScore{
		Name:        model.CategoryConversion,
		Weight:      model.CategoryWeights[model.CategoryConversion],
		Description: "Booking path clarity and friction",
		Score:       defaultCategoryScore,
		Source:      "default",
	}
	if raw == nil || raw.BookingFlow == nil {
		return cs
	}

	bf := raw.BookingFlow
	checklist := 0
	for _, ok := range []bool{
		bf.HasBookingCTA,
		bf.CTAAboveFold,
		bf.BookingEngineDetected,
		bf.HasDatePicker,
		bf.HasInstantBook,
		bf.ClicksToBook > 0 && bf.ClicksToBook <= 3,
	} {
		if ok {
			checklist += checklistItemValue
		}
	}

	friction := clamp(bf.FrictionScore, 0, 100)
	cs.Score = clamp(int(math.Round(float64(checklist+(100-friction))/2.0)), 0, 100)
	cs.Source = "booking_flow"
	return cs
}

// trustScore passes the analyzer's overall trust score through, defaulting
// when absent.
func trustScore(raw *model.RawResult) model.CategoryScore {
	cs := model.CategoryScore{
		Name:        model.CategoryTrust,
		Weight:      model.CategoryWeights[model.CategoryTrust],
		Description: "Credibility and reassurance signals",
		Score:       defaultCategoryScore,
		Source:      "default",
	}
	if raw == nil || raw.TrustSignals == nil || raw.TrustSignals.OverallTrustScore == nil {
		return cs
	}
	cs.Score = clamp(*raw.TrustSignals.OverallTrustScore, 0, 100)
	cs.Source = "trust_signals"
	return cs
}

func passthrough(name string, score *int, source, description string) model.CategoryScore {
	cs := model.CategoryScore{
		Name:        name,
		Weight:      model.CategoryWeights[name],
		Description: description,
	}
	if score == nil {
		if name == model.CategorySecurity {
			cs.Score = defaultSecurityScore
		} else {
			cs.Score = defaultCategoryScore
		}
		cs.Source = "default"
		return cs
	}
	cs.Score = clamp(*score, 0, 100)
	cs.Source = source
	return cs
}

func rawPerformance(raw *model.RawResult) *int {
	if raw == nil {
		return nil
	}
	return raw.PerformanceScore
}

func rawContent(raw *model.RawResult) *int {
	if raw == nil {
		return nil
	}
	return raw.ContentScore
}

func rawSEO(raw *model.RawResult) *int {
	if raw == nil {
		return nil
	}
	return raw.SEOScore
}

func rawSecurity(raw *model.RawResult) *int {
	if raw == nil {
		return nil
	}
	return raw.SecurityScore
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
