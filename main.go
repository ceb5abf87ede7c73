// Demo run: audits two fake hotel pages served from an in-process test server
// and prints their scores. Start the real API with ./cmd/auditd instead.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/stayscore/stayscore/internal/analyzer"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/scoring"
)

func setupHotelServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Seaside Hotel - Boutique rooms on the coast</title>
<meta name="description" content="Family-run boutique hotel with sea views, free breakfast and instant confirmation on every booking."></head>
<body><header><a href="#book">Book Now</a></header>
<h1>Seaside Hotel</h1>
<p>Instant confirmation on all direct bookings.</p>
<input type="date" name="checkin">
<iframe src="https://hotels.cloudbeds.com/reservation/abc"></iframe>
<footer><a href="tel:+15551234567">Call us</a> <a href="/privacy">Privacy policy</a> TripAdvisor rated</footer>
</body></html>`)
	})

	mux.HandleFunc("/bare", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Inn</title></head><body><p>Welcome. Email us to reserve a room.</p></body></html>`)
	})

	return httptest.NewServer(mux)
}

func main() {
	server := setupHotelServer()
	defer server.Close()

	logger := logging.NewStdoutLogger("demo")
	an, err := analyzer.New(analyzer.DefaultConfig(), logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer an.Close()

	for _, page := range []string{"/good", "/bare"} {
		raw, err := an.Run(context.Background(), server.URL+page, "demo.example"+page, func(percent int, step string) {
			fmt.Printf("  %3d%% %s\n", percent, step)
		})
		if err != nil {
			fmt.Printf("audit of %s failed: %v\n", page, err)
			continue
		}
		result := scoring.Score(raw)
		fmt.Printf("%s: overall %d, projected %d\n", page, result.OverallScore, result.ProjectedScore)
		for _, c := range result.Categories {
			fmt.Printf("  %-12s %3d (weight %d)\n", c.Name, c.Score, c.Weight)
		}
	}
}
