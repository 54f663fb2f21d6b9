package sweep

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/militaernews/tarta/internal/domain/enums"
	"github.com/militaernews/tarta/internal/domain/model"
	tginfra "github.com/militaernews/tarta/internal/infra/telegram"
)

func TestRunClaimsAndDispatchesOldestFirst(t *testing.T) {
	store := newFakeSweepStore(
		unsetAt(2, time.Unix(200, 0)),
		unsetAt(1, time.Unix(100, 0)),
		unsetAt(3, time.Unix(300, 0)),
	)
	channel := &fakePromptChannel{}
	job := New(store, channel, -100, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	if got := channel.reportOrder(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected dispatch order [1 2 3], got %v", got)
	}
	for _, id := range []int64{1, 2, 3} {
		r := store.get(id)
		if r.Resolution != enums.ResolutionPending {
			t.Fatalf("report %d should be pending after claim, got %s", id, r.Resolution)
		}
		if r.PromptMessageID == nil {
			t.Fatalf("report %d should carry a prompt handle", id)
		}
	}
}

func TestRunSecondSweepDoesNotPromptTwice(t *testing.T) {
	store := newFakeSweepStore(unsetAt(1, time.Unix(100, 0)))
	channel := &fakePromptChannel{}
	job := New(store, channel, -100, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(channel.sent) != 1 {
		t.Fatalf("claimed report must be prompted exactly once, got %d prompts", len(channel.sent))
	}
}

func TestRunRetriesUndeliveredPrompt(t *testing.T) {
	store := newFakeSweepStore(
		unsetAt(1, time.Unix(100, 0)),
		unsetAt(2, time.Unix(200, 0)),
	)
	channel := &fakePromptChannel{failFor: map[int64]bool{1: true}}
	job := New(store, channel, -100, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if r := store.get(1); r.Resolution != enums.ResolutionPending || r.PromptMessageID != nil {
		t.Fatalf("failed dispatch should leave report pending without a handle, got %+v", r)
	}
	if r := store.get(2); r.PromptMessageID == nil {
		t.Fatalf("failure on one report must not block the next")
	}

	channel.clearFailures()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if r := store.get(1); r.PromptMessageID == nil {
		t.Fatalf("undelivered prompt should be retried on the next run")
	}
	if got := channel.reportOrder(); len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Fatalf("expected deliveries [2 1], got %v", got)
	}
}

func TestRunWithoutModerationChatFails(t *testing.T) {
	job := New(newFakeSweepStore(), &fakePromptChannel{}, 0, nil)
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error when moderation chat is not configured")
	}
}

func TestPromptTextCarriesReportFields(t *testing.T) {
	text := PromptText(model.Report{
		ID:                7,
		Message:           "spam links",
		SubjectUserID:     42,
		ReporterAccountID: 9,
	})

	for _, want := range []string{"7", "9", "42", "spam links"} {
		if !strings.Contains(text, want) {
			t.Fatalf("prompt text missing %q: %q", want, text)
		}
	}
	if !strings.HasSuffix(text, "\n\nspam links") {
		t.Fatalf("report message should stand on its own line: %q", text)
	}
}

func TestPromptAffordancesEncodeBothDecisions(t *testing.T) {
	rows := PromptAffordances(12)
	if len(rows) != 2 || len(rows[0]) != 1 || len(rows[1]) != 1 {
		t.Fatalf("expected two single-button rows, got %+v", rows)
	}
	if rows[0][0].Data != "rep:ban:12" {
		t.Fatalf("unexpected ban token: %q", rows[0][0].Data)
	}
	if rows[1][0].Data != "rep:dismiss:12" {
		t.Fatalf("unexpected dismiss token: %q", rows[1][0].Data)
	}
	for _, row := range rows {
		if len(row[0].Data) > 64 {
			t.Fatalf("callback data exceeds 64 bytes: %q", row[0].Data)
		}
	}
}

func unsetAt(id int64, reportedAt time.Time) model.Report {
	return model.Report{
		ID:                id,
		Message:           "spam",
		SubjectUserID:     id * 10,
		ReporterAccountID: id * 100,
		Resolution:        enums.ResolutionUnset,
		ReportedAt:        reportedAt,
	}
}

type fakeSweepStore struct {
	mu      sync.Mutex
	reports map[int64]model.Report
}

func newFakeSweepStore(reports ...model.Report) *fakeSweepStore {
	s := &fakeSweepStore{reports: make(map[int64]model.Report)}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *fakeSweepStore) ClaimUnsetBatch(context.Context) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []model.Report
	for id, r := range s.reports {
		if r.Resolution == enums.ResolutionUnset {
			r.Resolution = enums.ResolutionPending
			s.reports[id] = r
			claimed = append(claimed, r)
		}
	}
	sortByReportedAt(claimed)
	return claimed, nil
}

func (s *fakeSweepStore) ListUndelivered(context.Context) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Report
	for _, r := range s.reports {
		if r.Resolution == enums.ResolutionPending && r.PromptMessageID == nil {
			out = append(out, r)
		}
	}
	sortByReportedAt(out)
	return out, nil
}

func (s *fakeSweepStore) MarkNotified(_ context.Context, id, chatID, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return errors.New("report not found")
	}
	r.PromptChatID = &chatID
	r.PromptMessageID = &messageID
	s.reports[id] = r
	return nil
}

func (s *fakeSweepStore) get(id int64) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[id]
}

func sortByReportedAt(reports []model.Report) {
	for i := 1; i < len(reports); i++ {
		for j := i; j > 0 && reports[j].ReportedAt.Before(reports[j-1].ReportedAt); j-- {
			reports[j], reports[j-1] = reports[j-1], reports[j]
		}
	}
}

type sentPrompt struct {
	chatID      int64
	text        string
	affordances [][]tginfra.Affordance
}

type fakePromptChannel struct {
	mu      sync.Mutex
	sent    []sentPrompt
	failFor map[int64]bool
	nextID  int64
}

func (c *fakePromptChannel) SendPrompt(_ context.Context, chatID int64, text string, affordances [][]tginfra.Affordance) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := reportIDFromAffordances(affordances)
	if c.failFor[id] {
		return 0, errors.New("telegram unavailable")
	}

	c.sent = append(c.sent, sentPrompt{chatID: chatID, text: text, affordances: affordances})
	c.nextID++
	return c.nextID, nil
}

func (c *fakePromptChannel) clearFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failFor = nil
}

func (c *fakePromptChannel) reportOrder() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []int64
	for _, p := range c.sent {
		out = append(out, reportIDFromAffordances(p.affordances))
	}
	return out
}

func reportIDFromAffordances(affordances [][]tginfra.Affordance) int64 {
	if len(affordances) == 0 || len(affordances[0]) == 0 {
		return 0
	}
	data := affordances[0][0].Data
	idx := strings.LastIndexByte(data, ':')
	if idx < 0 {
		return 0
	}
	var id int64
	for _, ch := range data[idx+1:] {
		if ch < '0' || ch > '9' {
			return 0
		}
		id = id*10 + int64(ch-'0')
	}
	return id
}
