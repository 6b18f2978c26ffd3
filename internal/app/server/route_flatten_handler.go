package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"spfwatch/internal/api/dto"
	"spfwatch/internal/config"
	"spfwatch/internal/database"
	"spfwatch/internal/domain"
	"spfwatch/internal/monitor"
	"spfwatch/internal/spf"
)

func flattenSPFRecord(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)

	var req dto.FlattenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	domainName := spf.NormalizeDomain(req.Domain)
	if domainName == "" {
		writeError(w, "Missing domain", http.StatusBadRequest)
		return
	}
	if len(req.Targets) == 0 {
		writeError(w, "No includes selected for flattening", http.StatusBadRequest)
		return
	}

	var rec *spf.Record
	if req.Record != "" {
		rec = spf.Parse(domainName, req.Record)
	} else {
		fetched, err := spf.Fetch(r.Context(), dnsResolver, domainName)
		if err != nil {
			log.Error("SPF fetch failed", "domain", domainName, "error", err)
			writeError(w, "DNS resolution failed", resolutionStatus(err))
			return
		}
		rec = fetched
	}

	opts := monitor.FlattenOptionsFromConfig(config.GetConfig())
	if req.Options != nil {
		opts = *req.Options
	}

	result := flattener.Flatten(r.Context(), rec, req.Targets, opts)

	response := dto.FlattenResponse{Result: result}
	if result.Success {
		op := &domain.FlatteningOperation{
			UserID:              userID,
			Domain:              domainName,
			OriginalRecord:      rec.Raw,
			FlattenedRecord:     result.FlattenedRecord,
			TargetIncludes:      req.Targets,
			OriginalLookupCount: result.OriginalLookups,
			NewLookupCount:      result.NewLookups,
			IPCount:             result.IPCount,
			Status:              domain.FlatteningStatusPending,
		}
		if err := database.CreateFlatteningOperation(op); err != nil {
			// The analysis result stands even when the history write fails.
			log.Error("Could not persist flattening operation", "domain", domainName, "error", err)
		} else {
			response.OperationID = op.ID
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func getFlatteningHistory(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)

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

	ops, err := database.ListFlatteningOperations(userID, domainName, limit)
	if err != nil {
		log.Error("Could not list flattening operations", "domain", domainName, "error", err)
		writeError(w, "Could not load flattening history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ops)
}

func updateFlatteningStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid operation id", http.StatusBadRequest)
		return
	}

	var req dto.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, err := database.UpdateFlatteningStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, database.ErrInvalidStatusTransition) {
			writeError(w, "Illegal status transition", http.StatusConflict)
			return
		}
		log.Error("Could not update flattening status", "id", id, "error", err)
		writeError(w, "Could not update flattening status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, op)
}
