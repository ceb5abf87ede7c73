package analyzer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stayscore/stayscore/internal/analyzer"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/testutil"
)

// ─── Fixtures ───

var richHotelPage = `<!DOCTYPE html>
<html>
<head>
<title>Seaside Hotel | Boutique rooms on the coast</title>
<meta name="description" content="A family-run boutique hotel on the coast with sea-view rooms, a garden restaurant and direct online booking at the best rate.">
</head>
<body>
<header>
  <nav><a href="/rooms">Rooms</a> <a href="/book">Book Now</a></nav>
</header>
<h1>Seaside Hotel</h1>
<p>Instant confirmation on all direct bookings.</p>
<input type="date" name="checkin">
<iframe src="https://hotels.cloudbeds.com/reservation/abc123"></iframe>
<h2>Our rooms</h2>
<h2>The restaurant</h2>
<img src="https://cdn.example.com/1.jpg" alt="Sea view room">
<img src="https://cdn.example.com/2.jpg" alt="Garden restaurant">
<p>` + loremWords + `</p>
<footer>
  <a href="tel:+15551234567">Call us</a>
  <a href="/privacy">Privacy policy</a>
  <p>Rated excellent on TripAdvisor by our guests.</p>
</footer>
</body>
</html>`

const barePage = `<html><head></head><body><p>Under construction</p></body></html>`

func runAnalyzer(t *testing.T, wc *testutil.DummyWebClient) (*model.RawResult, error) {
	t.Helper()
	a := analyzer.NewWithClient(wc, &testutil.DummyLogger{})
	return a.Run(context.Background(), "https://seaside.example.com", "seaside.example.com", nil)
}

// ─── Tests ───

func TestAnalyzer_RichPage(t *testing.T) {
	t.Parallel()

	raw, err := runAnalyzer(t, &testutil.DummyWebClient{Body: []byte(richHotelPage)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	bf := raw.BookingFlow
	if bf == nil {
		t.Fatal("no booking flow signals")
	}
	if !bf.HasBookingCTA {
		t.Error("missed the Book Now CTA")
	}
	if !bf.CTAAboveFold {
		t.Error("nav CTA should count as above the fold")
	}
	if !bf.BookingEngineDetected || bf.BookingEngine != "Cloudbeds" {
		t.Errorf("engine = %v %q, want Cloudbeds", bf.BookingEngineDetected, bf.BookingEngine)
	}
	if !bf.HasDatePicker {
		t.Error("missed the date input")
	}
	if !bf.HasInstantBook {
		t.Error("missed the instant confirmation copy")
	}
	if bf.ClicksToBook != 1 {
		t.Errorf("clicks to book = %d, want 1", bf.ClicksToBook)
	}
	if bf.FrictionScore != 0 {
		t.Errorf("friction = %d, want 0", bf.FrictionScore)
	}

	ts := raw.TrustSignals
	if ts == nil || ts.OverallTrustScore == nil {
		t.Fatal("no trust signals")
	}
	if !ts.HTTPS || !ts.HasContactInfo || !ts.HasPolicyPages || !ts.HasReviewsBadge {
		t.Errorf("trust signals = %+v", ts)
	}
	if *ts.OverallTrustScore != 100 {
		t.Errorf("trust = %d, want 100", *ts.OverallTrustScore)
	}

	if raw.SecurityScore == nil || *raw.SecurityScore != 100 {
		t.Errorf("security = %v, want 100 for https with no mixed content", raw.SecurityScore)
	}
	if raw.SEOScore == nil || *raw.SEOScore < 80 {
		t.Errorf("seo = %v, want a high score for a well-formed head", raw.SEOScore)
	}
	if raw.ContentScore == nil || *raw.ContentScore < 50 {
		t.Errorf("content = %v, want credit for copy, images and headings", raw.ContentScore)
	}
	if len(raw.Recommendations) == 0 {
		t.Error("expected at least pass-status recommendations")
	}
}

func TestAnalyzer_BarePage(t *testing.T) {
	t.Parallel()

	raw, err := runAnalyzer(t, &testutil.DummyWebClient{Body: []byte(barePage)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	bf := raw.BookingFlow
	if bf.HasBookingCTA || bf.BookingEngineDetected || bf.HasDatePicker {
		t.Errorf("bare page produced booking signals: %+v", bf)
	}
	if bf.ClicksToBook != 5 {
		t.Errorf("clicks to book = %d, want 5", bf.ClicksToBook)
	}
	if bf.FrictionScore != 100 {
		t.Errorf("friction = %d, want 100", bf.FrictionScore)
	}

	hasFail := false
	for _, rec := range raw.Recommendations {
		if rec.Status == model.RecommendationFail {
			hasFail = true
			break
		}
	}
	if !hasFail {
		t.Error("bare page produced no failing recommendations")
	}
}

func TestAnalyzer_ProgressSequence(t *testing.T) {
	t.Parallel()

	a := analyzer.NewWithClient(&testutil.DummyWebClient{Body: []byte(barePage)}, &testutil.DummyLogger{})
	var seen []int
	_, err := a.Run(context.Background(), "https://x.example.com", "x.example.com",
		func(percent int, step string) { seen = append(seen, percent) })
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) == 0 || seen[len(seen)-1] != 100 {
		t.Fatalf("progress = %v, want a sequence ending at 100", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress went backwards: %v", seen)
		}
	}
}

func TestAnalyzer_FetchErrors(t *testing.T) {
	t.Parallel()

	if _, err := runAnalyzer(t, &testutil.DummyWebClient{Err: errors.New("dial timeout")}); err == nil {
		t.Error("expected error for a failing fetch")
	}
	if _, err := runAnalyzer(t, &testutil.DummyWebClient{Status: 503, Body: []byte("busy")}); err == nil {
		t.Error("expected error for a non-2xx status")
	}
}

// loremWords pads the rich page past the first word-count bucket.
var loremWords = func() string {
	out := ""
	for i := 0; i < 120; i++ {
		out += "coastal rooms with breakfast and garden views "
	}
	return out
}()
