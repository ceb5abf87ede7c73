package analyzer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/stayscore/stayscore/internal/model"
)

// bookingCTAWords are phrases that mark a booking call-to-action.
var bookingCTAWords = []string{
	"book now", "book your stay", "book direct", "reserve now", "reserve",
	"check availability", "check rates", "book a room", "book online",
}

// bookingEngines maps a src-host fragment to the vendor name.
var bookingEngines = map[string]string{
	"cloudbeds.com":         "Cloudbeds",
	"mews.com":              "Mews",
	"siteminder.com":        "SiteMinder",
	"littlehotelier.com":    "Little Hotelier",
	"sirvoy.com":            "Sirvoy",
	"freetobook.com":        "Freetobook",
	"checkfront.com":        "Checkfront",
	"thinkreservations.com": "ThinkReservations",
	"resnexus.com":          "ResNexus",
	"synxis.com":            "SynXis",
	"booking.com":           "Booking.com widget",
}

var phoneRe = regexp.MustCompile(`(\+?\d[\d\s().-]{7,}\d)`)

// analyzeBookingFlow inspects the document for conversion-path signals.
func analyzeBookingFlow(doc *goquery.Document) *model.BookingFlowSignals {
	bf := &model.BookingFlowSignals{}

	ctaCount := 0
	firstCTAIndex := -1
	elementIndex := 0
	doc.Find("a, button, input[type=submit]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if text == "" {
			text = strings.ToLower(sel.AttrOr("value", ""))
		}
		for _, w := range bookingCTAWords {
			if strings.Contains(text, w) {
				ctaCount++
				if firstCTAIndex < 0 {
					firstCTAIndex = elementIndex
				}
				break
			}
		}
		elementIndex++
	})
	bf.HasBookingCTA = ctaCount > 0

	// Above-fold heuristic: the first CTA sits within the first handful of
	// interactive elements, or inside header/nav/hero markup.
	if bf.HasBookingCTA && firstCTAIndex >= 0 && firstCTAIndex < 8 {
		bf.CTAAboveFold = true
	}
	if !bf.CTAAboveFold {
		doc.Find("header, nav, [class*=hero], [id*=hero]").Find("a, button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.ToLower(strings.TrimSpace(sel.Text()))
			for _, w := range bookingCTAWords {
				if strings.Contains(text, w) {
					bf.CTAAboveFold = true
					return false
				}
			}
			return true
		})
	}

	// Booking engine detection via embedded iframe/script hosts.
	doc.Find("iframe[src], script[src], a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := sel.AttrOr("src", sel.AttrOr("href", ""))
		src = strings.ToLower(src)
		for host, vendor := range bookingEngines {
			if strings.Contains(src, host) {
				bf.BookingEngineDetected = true
				bf.BookingEngine = vendor
				return false
			}
		}
		return true
	})

	bf.HasDatePicker = doc.Find("input[type=date], [class*=datepicker], [class*=date-picker], [data-datepicker]").Length() > 0

	html, _ := doc.Html()
	lower := strings.ToLower(html)
	bf.HasInstantBook = strings.Contains(lower, "instant confirmation") ||
		strings.Contains(lower, "instant booking") ||
		strings.Contains(lower, "instantly confirmed")

	bf.ClicksToBook = estimateClicksToBook(bf)
	bf.FrictionScore = frictionScore(bf)
	return bf
}

// estimateClicksToBook is a coarse path-length estimate: an embedded engine
// is bookable in one step, a visible CTA in two to three, anything else is a
// long hunt.
func estimateClicksToBook(bf *model.BookingFlowSignals) int {
	switch {
	case bf.BookingEngineDetected && bf.HasDatePicker:
		return 1
	case bf.BookingEngineDetected || (bf.HasBookingCTA && bf.CTAAboveFold):
		return 2
	case bf.HasBookingCTA:
		return 3
	default:
		return 5
	}
}

// frictionScore accumulates penalty points for each missing conversion aid.
func frictionScore(bf *model.BookingFlowSignals) int {
	friction := 0
	if !bf.HasBookingCTA {
		friction += 30
	}
	if !bf.CTAAboveFold {
		friction += 15
	}
	if !bf.BookingEngineDetected {
		friction += 20
	}
	if !bf.HasDatePicker {
		friction += 10
	}
	if !bf.HasInstantBook {
		friction += 5
	}
	if bf.ClicksToBook > 3 {
		friction += 20
	}
	if friction > 100 {
		friction = 100
	}
	return friction
}

// analyzeTrust looks for credibility markers and folds them into an overall
// trust score, 25 points per signal.
func analyzeTrust(doc *goquery.Document, https bool) *model.TrustSignals {
	ts := &model.TrustSignals{HTTPS: https}

	if doc.Find("a[href^='tel:'], a[href^='mailto:']").Length() > 0 {
		ts.HasContactInfo = true
	} else if phoneRe.MatchString(doc.Find("footer, [class*=contact], address").Text()) {
		ts.HasContactInfo = true
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := strings.ToLower(sel.AttrOr("href", ""))
		text := strings.ToLower(sel.Text())
		for _, marker := range []string{"privacy", "terms", "cancellation", "policy"} {
			if strings.Contains(href, marker) || strings.Contains(text, marker) {
				ts.HasPolicyPages = true
				return false
			}
		}
		return true
	})

	html, _ := doc.Html()
	lower := strings.ToLower(html)
	for _, marker := range []string{"tripadvisor", "trustpilot", "google reviews", "aggregaterating", "guest reviews"} {
		if strings.Contains(lower, marker) {
			ts.HasReviewsBadge = true
			break
		}
	}

	score := 0
	for _, ok := range []bool{ts.HTTPS, ts.HasContactInfo, ts.HasPolicyPages, ts.HasReviewsBadge} {
		if ok {
			score += 25
		}
	}
	ts.OverallTrustScore = intPtr(score)
	return ts
}

// contentScore rates content depth: enough words, some imagery, structured
// headings.
func contentScore(doc *goquery.Document) int {
	score := 0

	words := len(strings.Fields(doc.Find("body").Text()))
	switch {
	case words >= 600:
		score += 50
	case words >= 250:
		score += 35
	case words >= 80:
		score += 20
	}

	images := doc.Find("img").Length()
	switch {
	case images >= 6:
		score += 25
	case images >= 2:
		score += 15
	}

	if doc.Find("h2, h3").Length() >= 2 {
		score += 25
	}

	if score > 100 {
		score = 100
	}
	return score
}

// seoScore rates the on-page fundamentals: title, meta description, a single
// h1 and alt text coverage.
func seoScore(doc *goquery.Document) int {
	score := 0

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if n := len(title); n >= 10 && n <= 70 {
		score += 30
	} else if n > 0 {
		score += 15
	}

	if desc := doc.Find("meta[name=description]").AttrOr("content", ""); len(strings.TrimSpace(desc)) >= 50 {
		score += 30
	} else if desc != "" {
		score += 15
	}

	if doc.Find("h1").Length() == 1 {
		score += 20
	}

	images := doc.Find("img")
	if total := images.Length(); total > 0 {
		withAlt := images.FilterFunction(func(_ int, sel *goquery.Selection) bool {
			return strings.TrimSpace(sel.AttrOr("alt", "")) != ""
		}).Length()
		score += 20 * withAlt / total
	} else {
		score += 20
	}

	if score > 100 {
		score = 100
	}
	return score
}

// securityScore checks transport security and mixed content.
func securityScore(doc *goquery.Document, https bool) int {
	score := 0
	if https {
		score += 70
	}

	mixed := false
	doc.Find("img[src], script[src], link[href], iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := sel.AttrOr("src", sel.AttrOr("href", ""))
		if strings.HasPrefix(strings.ToLower(src), "http://") {
			mixed = true
			return false
		}
		return true
	})
	if !mixed {
		score += 30
	}
	return score
}
