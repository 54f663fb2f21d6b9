package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	reportsvc "github.com/militaernews/tarta/internal/services/reports"
	"github.com/militaernews/tarta/internal/transport/http/dto"
	httperrors "github.com/militaernews/tarta/internal/transport/http/errors"
)

type ReportHandler struct {
	service *reportsvc.Service
}

func NewReportHandler(service *reportsvc.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
		return
	}

	var req dto.SubmitReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid json")
		return
	}

	report, retryAfter, err := h.service.Submit(r.Context(), reportsvc.SubmitInput{
		Message:           req.Message,
		SubjectUserID:     req.SubjectUserID,
		ReporterAccountID: req.ReporterAccountID,
	})
	if err != nil {
		switch {
		case errors.Is(err, reportsvc.ErrInvalidInput):
			writeBadRequest(w, "VALIDATION_FAILED", "report submission failed validation")
		case errors.Is(err, reportsvc.ErrRateLimited):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many reports from this account",
				RetryAfterSec: retryAfter,
			})
		case errors.Is(err, reportsvc.ErrTempUnavailable):
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "TEMP_UNAVAILABLE",
				Message: "report submission is temporarily unavailable",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create report")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ReportResponseFrom(report))
}

func (h *ReportHandler) LookupBanned(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
		return
	}

	subjectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || subjectID <= 0 {
		writeBadRequest(w, "INVALID_REQUEST", "subject user id must be a positive integer")
		return
	}

	report, err := h.service.LookupBanned(r.Context(), subjectID)
	if err != nil {
		switch {
		case errors.Is(err, reportsvc.ErrNotFound):
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "NOT_FOUND",
				Message: "no banned report for this subject",
			})
		case errors.Is(err, reportsvc.ErrInvalidInput):
			writeBadRequest(w, "INVALID_REQUEST", "subject user id must be a positive integer")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to look up reports")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReportResponseFrom(report))
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
