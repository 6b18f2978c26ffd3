package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"spfwatch/internal/api/dto"
	"spfwatch/internal/database"
	"spfwatch/internal/spf"
)

func checkDomainChanges(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)

	var req dto.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	domainName := spf.NormalizeDomain(req.Domain)
	if domainName == "" {
		writeError(w, "Missing domain", http.StatusBadRequest)
		return
	}

	result, err := domainMon.CheckDomainChanges(r.Context(), userID, domainName)
	if err != nil {
		log.Error("Domain check failed", "domain", domainName, "error", err)
		writeError(w, "Domain check failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func getChangeEvents(w http.ResponseWriter, r *http.Request) {
	domainName, ok := domainFromQuery(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := database.ListChangeEvents(domainName, limit)
	if err != nil {
		log.Error("Could not list change events", "domain", domainName, "error", err)
		writeError(w, "Could not load change events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
