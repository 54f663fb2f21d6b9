package dto

import (
	"time"

	"github.com/militaernews/tarta/internal/domain/model"
)

type SubmitReportRequest struct {
	Message           string `json:"message"`
	SubjectUserID     int64  `json:"subject_user_id"`
	ReporterAccountID int64  `json:"reporter_account_id"`
}

type ReportResponse struct {
	ID                int64      `json:"id"`
	Message           string     `json:"message"`
	SubjectUserID     int64      `json:"subject_user_id"`
	ReporterAccountID int64      `json:"reporter_account_id"`
	ReportedAt        time.Time  `json:"reported_at"`
	Resolution        string     `json:"resolution"`
	Outcome           *string    `json:"outcome,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

func ReportResponseFrom(report model.Report) ReportResponse {
	resp := ReportResponse{
		ID:                report.ID,
		Message:           report.Message,
		SubjectUserID:     report.SubjectUserID,
		ReporterAccountID: report.ReporterAccountID,
		ReportedAt:        report.ReportedAt,
		Resolution:        string(report.Resolution),
		ResolvedAt:        report.ResolvedAt,
	}
	if report.Outcome != nil {
		outcome := string(*report.Outcome)
		resp.Outcome = &outcome
	}
	return resp
}
