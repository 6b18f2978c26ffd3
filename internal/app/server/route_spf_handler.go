package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"spfwatch/internal/api/dto"
	"spfwatch/internal/resolver"
	"spfwatch/internal/spf"
)

// userIDFromRequest reads the caller identity the auth proxy injects.
// Requests without the header fall into the shared anonymous scope.
func userIDFromRequest(r *http.Request) uint64 {
	raw := r.Header.Get("X-User-Id")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func domainFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	domain := spf.NormalizeDomain(r.URL.Query().Get("domain"))
	if domain == "" {
		writeError(w, "Missing domain parameter", http.StatusBadRequest)
		return "", false
	}
	return domain, true
}

func resolutionStatus(err error) int {
	if errors.Is(err, resolver.ErrTimeout) || errors.Is(err, resolver.ErrServFail) {
		return http.StatusBadGateway
	}
	if errors.Is(err, resolver.ErrNXDomain) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func parseSPFRecord(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainFromQuery(w, r)
	if !ok {
		return
	}

	rec, err := spf.Fetch(r.Context(), dnsResolver, domain)
	if err != nil {
		log.Error("SPF fetch failed", "domain", domain, "error", err)
		writeError(w, "DNS resolution failed", resolutionStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func analyzeSPFRecord(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainFromQuery(w, r)
	if !ok {
		return
	}

	rec, err := spf.Fetch(r.Context(), dnsResolver, domain)
	if err != nil {
		log.Error("SPF fetch failed", "domain", domain, "error", err)
		writeError(w, "DNS resolution failed", resolutionStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, dto.SPFAnalysis{
		Record:      rec,
		Suggestions: spf.Suggest(rec, classifier.Rate),
	})
}
