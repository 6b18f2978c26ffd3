package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"spfwatch/internal/esp"
	"spfwatch/internal/flatten"
	"spfwatch/internal/monitor"
	"spfwatch/internal/resolver"
)

var (
	dnsResolver resolver.Resolver
	classifier  *esp.Classifier
	flattener   *flatten.Flattener
	domainMon   *monitor.Monitor
)

// Configure wires the shared components into the handlers. Must be called
// before OpenRoutes.
func Configure(r resolver.Resolver, c *esp.Classifier, f *flatten.Flattener, m *monitor.Monitor) {
	dnsResolver = r
	classifier = c
	flattener = f
	domainMon = m
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Allow any origin
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id")

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass the request to the next handler
		next.ServeHTTP(w, r)
	})
}

func OpenRoutes(port int) error {
	router := http.NewServeMux()

	router.HandleFunc("GET /api/version", getVersion)

	router.HandleFunc("GET /api/spf/parse", parseSPFRecord)
	router.HandleFunc("GET /api/spf/analyze", analyzeSPFRecord)
	router.HandleFunc("POST /api/spf/flatten", flattenSPFRecord)

	router.HandleFunc("GET /api/esp/rating", getESPStabilityRating)

	router.HandleFunc("POST /api/monitor/check", checkDomainChanges)
	router.HandleFunc("GET /api/monitor/events", getChangeEvents)

	router.HandleFunc("GET /api/flatten/history", getFlatteningHistory)
	router.HandleFunc("POST /api/flatten/history/{id}/status", updateFlatteningStatus)

	log.Debug("Routes opened")

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: enableCORS(router),
	}

	log.Infof("Starting spfwatch backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
