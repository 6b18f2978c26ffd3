package server

import (
	"net/http"

	"spfwatch/internal/spf"
)

func getESPStabilityRating(w http.ResponseWriter, r *http.Request) {
	domain := spf.NormalizeDomain(r.URL.Query().Get("domain"))
	if domain == "" {
		writeError(w, "Missing domain parameter", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, classifier.Classify(domain))
}
