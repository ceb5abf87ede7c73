package analyzer

import "github.com/stayscore/stayscore/internal/model"

// buildRecommendations turns the raw signals into pass/fail/warning findings.
// Every finding's category is one of the six scoring categories.
func buildRecommendations(raw *model.RawResult) []model.Recommendation {
	var recs []model.Recommendation

	add := func(title, desc string, ok bool, failStatus model.RecommendationStatus, impact, category string) {
		status := failStatus
		if ok {
			status = model.RecommendationPass
		}
		recs = append(recs, model.Recommendation{
			Title:       title,
			Description: desc,
			Status:      status,
			Impact:      impact,
			Category:    category,
		})
	}

	if bf := raw.BookingFlow; bf != nil {
		add("Visible booking call-to-action",
			"A clear 'Book Now' button is the single biggest conversion lever.",
			bf.HasBookingCTA, model.RecommendationFail, model.ImpactHigh, model.CategoryConversion)
		add("Booking CTA above the fold",
			"Guests should see the booking entry point without scrolling.",
			bf.CTAAboveFold, model.RecommendationWarning, model.ImpactHigh, model.CategoryConversion)
		add("Online booking engine",
			"Direct online booking avoids losing guests to phone-or-email friction.",
			bf.BookingEngineDetected, model.RecommendationFail, model.ImpactHigh, model.CategoryConversion)
		add("Date picker on site",
			"Letting guests check dates in place shortens the booking path.",
			bf.HasDatePicker, model.RecommendationWarning, model.ImpactMedium, model.CategoryConversion)
		add("Instant confirmation",
			"Instant booking confirmation reduces abandonment.",
			bf.HasInstantBook, model.RecommendationWarning, model.ImpactLow, model.CategoryConversion)
	}

	if ts := raw.TrustSignals; ts != nil {
		add("Contact details visible",
			"A phone number or email address reassures guests someone is reachable.",
			ts.HasContactInfo, model.RecommendationWarning, model.ImpactMedium, model.CategoryTrust)
		add("Policy pages linked",
			"Privacy, terms and cancellation policies signal a legitimate operation.",
			ts.HasPolicyPages, model.RecommendationWarning, model.ImpactMedium, model.CategoryTrust)
		add("Guest reviews shown",
			"Third-party review badges are strong social proof.",
			ts.HasReviewsBadge, model.RecommendationWarning, model.ImpactMedium, model.CategoryTrust)
		add("Served over HTTPS",
			"Browsers flag plain-HTTP sites as not secure.",
			ts.HTTPS, model.RecommendationFail, model.ImpactHigh, model.CategorySecurity)
	}

	if raw.SEOScore != nil {
		add("SEO fundamentals in place",
			"Title, meta description, heading structure and image alt text.",
			*raw.SEOScore >= 70, model.RecommendationWarning, model.ImpactLow, model.CategorySEO)
	}
	if raw.ContentScore != nil {
		add("Content depth",
			"Enough descriptive content for guests and search engines.",
			*raw.ContentScore >= 60, model.RecommendationWarning, model.ImpactLow, model.CategoryContent)
	}

	return recs
}
