package model

import (
	"time"

	"github.com/militaernews/tarta/internal/domain/enums"
)

type Report struct {
	ID                int64            `json:"id"`
	Message           string           `json:"message"`
	SubjectUserID     int64            `json:"subject_user_id"`
	ReporterAccountID int64            `json:"reporter_account_id"`
	ReportedAt        time.Time        `json:"reported_at"`
	Resolution        enums.Resolution `json:"resolution"`
	Outcome           *enums.Outcome   `json:"outcome,omitempty"`
	PromptChatID      *int64           `json:"-"`
	PromptMessageID   *int64           `json:"-"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty"`
}
