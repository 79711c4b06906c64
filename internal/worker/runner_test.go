package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/engine"
	"github.com/Priya8975/broadcast-review/internal/websocket"
)

type fakeFetcher struct {
	inputs domain.Inputs
}

func (f *fakeFetcher) FetchInputs(ctx context.Context, country string, window domain.Window, config domain.ConfigTable) domain.Inputs {
	in := f.inputs
	in.Country = country
	in.Window = window
	in.Config = config.ForCountry(country)
	return in
}

type fakeConfigs struct {
	table domain.ConfigTable
	err   error
}

func (f *fakeConfigs) Load(ctx context.Context) (domain.ConfigTable, error) {
	return f.table, f.err
}

type savedReport struct {
	runID   string
	report  *domain.CountryReport
	failure error
}

type fakeSaver struct {
	mu      sync.Mutex
	saved   []savedReport
	err     error
	runDone bool
}

func (f *fakeSaver) SaveCountryReport(ctx context.Context, runID string, r *domain.CountryReport, failure error) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && failure == nil {
		return false, f.err
	}
	f.saved = append(f.saved, savedReport{runID: runID, report: r, failure: failure})
	return f.runDone, nil
}

type fakeRetrier struct {
	jobs []engine.CountryJob
}

func (f *fakeRetrier) Retry(ctx context.Context, job engine.CountryJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []websocket.RunEvent
}

func (f *fakeEvents) Broadcast(event websocket.RunEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type fakeNotifier struct {
	sent []ReportReady
}

func (f *fakeNotifier) Notify(ctx context.Context, n ReportReady) error {
	f.sent = append(f.sent, n)
	return nil
}

var testJob = engine.CountryJob{
	RunID:       "run-1",
	Country:     "ZA",
	Window:      domain.WeeklyWindow(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
	Attempt:     1,
	MaxAttempts: 3,
}

func reportedInputs() domain.Inputs {
	return domain.Inputs{
		ActiveUsers: []domain.ActiveUser{
			{Platform: domain.PlatformSAM, MSISDN: "1", ServiceID: "s", OperatorCode: "X", Gateway: "gw"},
			{Platform: domain.PlatformSAM, MSISDN: "2", ServiceID: "s", OperatorCode: "X", Gateway: "gw"},
		},
		Transactions: []domain.Transaction{
			{MSISDN: "1", Platform: domain.PlatformSAM, TotalTransactions: 2},
		},
	}
}

func testConfigTable() domain.ConfigTable {
	return domain.ConfigTable{
		MetadataColumns: []string{domain.ColumnMinExpected, domain.ColumnMaxExpected},
		Rules: []domain.ConfigRule{
			{CountryCode: "ZA", Gateway: "gw", OperatorCode: "*", ServiceIdentifier1: "*", ServiceIdentifier2: "*", Metadata: []string{"0", "3"}},
		},
	}
}

func newTestRunner(t *testing.T, in domain.Inputs) (*Runner, *fakeSaver, *fakeRetrier, *fakeEvents, *fakeNotifier, *fakeConfigs) {
	t.Helper()
	saver := &fakeSaver{}
	retrier := &fakeRetrier{}
	events := &fakeEvents{}
	notifier := &fakeNotifier{}
	configs := &fakeConfigs{table: testConfigTable()}
	r := NewRunner(RunnerDeps{
		Fetcher:    &fakeFetcher{inputs: in},
		Configs:    configs,
		Saver:      saver,
		Retrier:    retrier,
		Events:     events,
		Notifier:   notifier,
		ReportsDir: t.TempDir(),
	}, testLogger())
	return r, saver, retrier, events, notifier, configs
}

func TestRunner_ReportsCountry(t *testing.T) {
	r, saver, _, events, notifier, _ := newTestRunner(t, reportedInputs())

	r.Handle(context.Background(), testJob)

	if len(saver.saved) != 1 {
		t.Fatalf("expected 1 saved report, got %d", len(saver.saved))
	}
	got := saver.saved[0].report
	if got.Outcome != domain.OutcomeReported || len(got.Results.Rows) != 1 {
		t.Errorf("unexpected report: outcome %q with %d rows", got.Outcome, len(got.Results.Rows))
	}
	if got.Results.Rows[0].Counts[2] != 1 || got.Results.Rows[0].Counts[0] != 1 {
		t.Errorf("unexpected counts: %v", got.Results.Rows[0].Counts)
	}

	want := []string{websocket.EventCountryStarted, websocket.EventCountryCompleted}
	if types := events.types(); len(types) != 2 || types[0] != want[0] || types[1] != want[1] {
		t.Errorf("expected events %v, got %v", want, types)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Cohorts != 1 {
		t.Errorf("expected one notification, got %+v", notifier.sent)
	}

	csvPath := filepath.Join(r.deps.ReportsDir, testJob.Window.Label(), "ZA.csv")
	if _, err := os.Stat(csvPath); err != nil {
		t.Errorf("expected csv at %s: %v", csvPath, err)
	}
}

func TestRunner_NoActiveUsers(t *testing.T) {
	r, saver, _, _, notifier, _ := newTestRunner(t, domain.Inputs{})

	r.Handle(context.Background(), testJob)

	if len(saver.saved) != 1 || saver.saved[0].report.Outcome != domain.OutcomeNoActiveUsers {
		t.Fatalf("expected a no_active_users report, got %+v", saver.saved)
	}
	if len(notifier.sent) != 0 {
		t.Error("empty reports must not be announced")
	}
}

func TestRunner_RetriesThenFails(t *testing.T) {
	r, saver, retrier, events, _, configs := newTestRunner(t, reportedInputs())
	configs.err = errors.New("sheet unavailable")

	r.Handle(context.Background(), testJob)

	if len(retrier.jobs) != 1 || len(saver.saved) != 0 {
		t.Fatalf("expected a retry and nothing saved, got %d retries %d saves", len(retrier.jobs), len(saver.saved))
	}

	last := testJob
	last.Attempt = last.MaxAttempts
	r.Handle(context.Background(), last)

	if len(retrier.jobs) != 1 {
		t.Errorf("expected no retry on the last attempt, got %d", len(retrier.jobs))
	}
	if len(saver.saved) != 1 {
		t.Fatalf("expected the failure to be stored, got %d saves", len(saver.saved))
	}
	if saver.saved[0].report.Outcome != domain.OutcomeFailed || saver.saved[0].failure == nil {
		t.Errorf("unexpected stored failure: %+v", saver.saved[0])
	}

	types := events.types()
	if types[1] != websocket.EventCountryRetrying || types[len(types)-1] != websocket.EventCountryFailed {
		t.Errorf("unexpected events: %v", types)
	}
}

func TestRunner_StoreFailureRetries(t *testing.T) {
	r, saver, retrier, _, notifier, _ := newTestRunner(t, reportedInputs())
	saver.err = errors.New("postgres down")

	r.Handle(context.Background(), testJob)

	if len(retrier.jobs) != 1 {
		t.Errorf("expected a retry after a store failure, got %d", len(retrier.jobs))
	}
	if len(notifier.sent) != 0 {
		t.Error("unsaved reports must not be announced")
	}
}

func TestRunner_RunCompletedEvent(t *testing.T) {
	r, saver, _, events, _, _ := newTestRunner(t, reportedInputs())
	saver.runDone = true

	r.Handle(context.Background(), testJob)

	types := events.types()
	if types[len(types)-1] != websocket.EventRunCompleted {
		t.Errorf("expected run_completed last, got %v", types)
	}
}
