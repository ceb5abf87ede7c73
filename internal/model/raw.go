package model

import "time"

// RawResult is the analysis engine's output for one domain. Any field may be
// absent; scoring degrades to neutral defaults rather than failing.
type RawResult struct {
	URL    string `json:"url,omitempty"`
	Domain string `json:"domain,omitempty"`

	// BookingFlow holds the conversion-path signals, when detected.
	BookingFlow *BookingFlowSignals `json:"booking_flow,omitempty"`

	// TrustSignals holds credibility signals, when detected.
	TrustSignals *TrustSignals `json:"trust_signals,omitempty"`

	// Pass-through category scores computed upstream. Nil means "unknown".
	PerformanceScore *int `json:"performance_score,omitempty"`
	ContentScore     *int `json:"content_score,omitempty"`
	SEOScore         *int `json:"seo_score,omitempty"`
	SecurityScore    *int `json:"security_score,omitempty"`

	// Recommendations produced alongside the raw signals.
	Recommendations []Recommendation `json:"recommendations,omitempty"`

	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// BookingFlowSignals describe the conversion path of a site.
type BookingFlowSignals struct {
	HasBookingCTA         bool `json:"has_booking_cta"`
	CTAAboveFold          bool `json:"cta_above_fold"`
	BookingEngineDetected bool `json:"booking_engine_detected"`
	HasDatePicker         bool `json:"has_date_picker"`
	HasInstantBook        bool `json:"has_instant_book"`
	ClicksToBook          int  `json:"clicks_to_book"`

	// BookingEngine names the detected vendor, when known.
	BookingEngine string `json:"booking_engine,omitempty"`

	// FrictionScore estimates conversion friction in [0..100]; higher is worse.
	FrictionScore int `json:"friction_score"`
}

// TrustSignals describe credibility markers found on a site.
type TrustSignals struct {
	OverallTrustScore *int `json:"overall_trust_score,omitempty"`

	HasContactInfo  bool `json:"has_contact_info"`
	HasPolicyPages  bool `json:"has_policy_pages"`
	HasReviewsBadge bool `json:"has_reviews_badge"`
	HTTPS           bool `json:"https"`
}
