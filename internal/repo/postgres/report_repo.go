package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/militaernews/tarta/internal/domain/enums"
	"github.com/militaernews/tarta/internal/domain/model"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidReport  = errors.New("invalid report payload")

	// Expected concurrency outcomes of Resolve, not failures. AlreadyResolved
	// is returned together with the stored row so the caller can show the
	// winning outcome.
	ErrAlreadyResolved = errors.New("report already resolved")
	ErrNotYetPending   = errors.New("report not yet pending")
)

const reportColumns = `id, message, subject_user_id, reporter_account_id, reported_at, resolution, outcome, prompt_chat_id, prompt_message_id, resolved_at`

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

type ReportDraft struct {
	Message           string
	SubjectUserID     int64
	ReporterAccountID int64
}

func (r *ReportRepo) Create(ctx context.Context, draft ReportDraft) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(draft.Message) == "" || draft.SubjectUserID <= 0 || draft.ReporterAccountID <= 0 {
		return model.Report{}, ErrInvalidReport
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO reports (message, subject_user_id, reporter_account_id, resolution)
VALUES ($1, $2, $3, 'unset')
RETURNING `+reportColumns+`
`, strings.TrimSpace(draft.Message), draft.SubjectUserID, draft.ReporterAccountID)

	report, err := scanReport(row)
	if err != nil {
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}

	return report, nil
}

// ClaimUnsetBatch transitions every unset report to pending in one statement
// and returns the claimed rows oldest-first. The single conditional UPDATE is
// what keeps concurrent sweeps from claiming the same report twice.
func (r *ReportRepo) ClaimUnsetBatch(ctx context.Context) ([]model.Report, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
WITH claimed AS (
	UPDATE reports
	SET resolution = 'pending'
	WHERE resolution = 'unset'
	RETURNING `+reportColumns+`
)
SELECT `+reportColumns+`
FROM claimed
ORDER BY reported_at ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("claim unset reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// Resolve transitions a pending report to resolved with the given outcome.
// Zero affected rows means the report was not pending; the row is re-read to
// classify the conflict, and on ErrAlreadyResolved the stored row (carrying
// the winning outcome) is returned alongside the error.
func (r *ReportRepo) Resolve(ctx context.Context, id int64, outcome enums.Outcome) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 || !outcome.Valid() {
		return model.Report{}, ErrInvalidReport
	}

	row := r.pool.QueryRow(ctx, `
UPDATE reports
SET resolution = 'resolved', outcome = $2, resolved_at = NOW()
WHERE id = $1 AND resolution = 'pending'
RETURNING `+reportColumns+`
`, id, string(outcome))

	report, err := scanReport(row)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, fmt.Errorf("resolve report: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Report{}, err
	}

	switch current.Resolution {
	case enums.ResolutionResolved:
		return current, ErrAlreadyResolved
	case enums.ResolutionUnset:
		return model.Report{}, ErrNotYetPending
	default:
		// Pending again means another caller resolved and something reverted
		// the row, which the schema forbids. Surface as a store error.
		return model.Report{}, fmt.Errorf("resolve report %d: unexpected concurrent state", id)
	}
}

// MarkNotified records the delivered prompt handle. Delivery tracking lives
// beside the resolution state so a failed dispatch never rolls a report back.
func (r *ReportRepo) MarkNotified(ctx context.Context, id, chatID, messageID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 || chatID == 0 || messageID == 0 {
		return ErrInvalidReport
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE reports
SET prompt_chat_id = $2, prompt_message_id = $3
WHERE id = $1 AND prompt_message_id IS NULL
`, id, chatID, messageID)
	if err != nil {
		return fmt.Errorf("mark report notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}

	return nil
}

// ListUndelivered returns pending reports whose prompt never reached the
// moderator channel, oldest first. The sweep re-dispatches these before
// claiming new work.
func (r *ReportRepo) ListUndelivered(ctx context.Context) ([]model.Report, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE resolution = 'pending' AND prompt_message_id IS NULL
ORDER BY reported_at ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list undelivered reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

func (r *ReportRepo) GetByID(ctx context.Context, id int64) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 {
		return model.Report{}, ErrInvalidReport
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE id = $1
`, id)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("get report by id: %w", err)
	}

	return report, nil
}

func (r *ReportRepo) LatestBannedBySubject(ctx context.Context, subjectUserID int64) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if subjectUserID <= 0 {
		return model.Report{}, ErrInvalidReport
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE subject_user_id = $1 AND outcome = 'banned'
ORDER BY reported_at DESC, id DESC
LIMIT 1
`, subjectUserID)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("get banned report by subject: %w", err)
	}

	return report, nil
}

func scanReport(row pgx.Row) (model.Report, error) {
	var (
		report     model.Report
		resolution string
		outcome    *string
	)

	err := row.Scan(
		&report.ID,
		&report.Message,
		&report.SubjectUserID,
		&report.ReporterAccountID,
		&report.ReportedAt,
		&resolution,
		&outcome,
		&report.PromptChatID,
		&report.PromptMessageID,
		&report.ResolvedAt,
	)
	if err != nil {
		return model.Report{}, err
	}

	report.Resolution = enums.Resolution(resolution)
	if outcome != nil {
		value := enums.Outcome(*outcome)
		report.Outcome = &value
	}

	return report, nil
}

func collectReports(rows pgx.Rows) ([]model.Report, error) {
	var reports []model.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, nil
}
