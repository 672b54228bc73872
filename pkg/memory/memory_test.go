package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/omnikernel/kernel/pkg/agentloop"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// fakeStore is a minimal in-memory vectorstore.Provider stand-in whose
// search returns every row matching the filter (up to topK, in map order,
// not ranked by distance), enough to exercise Manager's
// upsert/search/filter logic without chromem.
type fakeStore struct {
	rows map[string]vectorstore.Result
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[string]vectorstore.Result{}} }

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Upsert(_ context.Context, _, id string, vector []float32, metadata map[string]any) error {
	f.rows[id] = vectorstore.Result{ID: id, Vector: vector, Metadata: metadata}
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.Result, error) {
	return f.SearchWithFilter(ctx, collection, vector, topK, nil)
}

func (f *fakeStore) SearchWithFilter(_ context.Context, _ string, _ []float32, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	var out []vectorstore.Result
	for _, r := range f.rows {
		match := true
		for k, v := range filter {
			if r.Metadata[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, r)
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, _, id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeStore) DeleteByFilter(context.Context, string, map[string]any) error { return nil }
func (f *fakeStore) CreateCollection(context.Context, string, int) error          { return nil }
func (f *fakeStore) DeleteCollection(context.Context, string) error               { return nil }
func (f *fakeStore) Close() error                                                 { return nil }

func TestAddExperienceThenRecallRoundTrips(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, nil, "")

	id, err := mgr.AddExperience(context.Background(), "git commit fails", []string{"git.commit"}, "failure", "lock file exists", "remove the lock", "sess-1")
	if err != nil {
		t.Fatalf("AddExperience() error = %v", err)
	}
	if id == "" {
		t.Fatal("AddExperience() returned empty id")
	}

	logs, err := mgr.Recall(context.Background(), "git commit fails", 3, "")
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if logs[0].UserQuery != "git commit fails" {
		t.Errorf("UserQuery = %q", logs[0].UserQuery)
	}
	if logs[0].Reflection != "remove the lock" {
		t.Errorf("Reflection = %q", logs[0].Reflection)
	}
	if logs[0].ErrorMsg != "lock file exists" {
		t.Errorf("ErrorMsg = %q", logs[0].ErrorMsg)
	}
}

func TestRecallFiltersByOutcome(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, nil, "")
	ctx := context.Background()

	if _, err := mgr.AddExperience(ctx, "task one", nil, "success", "", "it worked", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.AddExperience(ctx, "task two", nil, "failure", "boom", "it broke", ""); err != nil {
		t.Fatal(err)
	}

	logs, err := mgr.Recall(ctx, "task", 5, "failure")
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Outcome != "failure" {
		t.Errorf("logs = %+v, want one failure record", logs)
	}
}

func TestInterceptorAfterExecutionGeneratesReflectionOnFailure(t *testing.T) {
	store := newFakeStore()
	interceptor := NewInterceptor(NewManager(store, nil, ""))

	_, err := interceptor.AfterExecution(context.Background(), agentloop.AfterExecutionInput{
		Query:     "commit my change",
		ToolCalls: []string{"git.commit"},
		Success:   false,
		Error:     "fatal: Unable to create '.git/index.lock': File exists",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("AfterExecution() error = %v", err)
	}

	logs, err := interceptor.BeforeExecution(context.Background(), "commit my change", 1)
	if err != nil {
		t.Fatalf("BeforeExecution() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if got := logs[0].Reflection; !containsAll(got, "lock file", "retrying") {
		t.Errorf("Reflection = %q, want lock-file suggestion", got)
	}
}

func TestInterceptorAfterExecutionSuccessReflection(t *testing.T) {
	store := newFakeStore()
	interceptor := NewInterceptor(NewManager(store, nil, ""))

	_, err := interceptor.AfterExecution(context.Background(), agentloop.AfterExecutionInput{
		Query:     "run the tests",
		ToolCalls: []string{"test.run"},
		Success:   true,
	})
	if err != nil {
		t.Fatalf("AfterExecution() error = %v", err)
	}

	logs, err := interceptor.BeforeExecution(context.Background(), "run the tests", 1)
	if err != nil {
		t.Fatalf("BeforeExecution() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Outcome != "success" {
		t.Fatalf("logs = %+v, want one success record", logs)
	}
}

func TestRecallAdaptsToRecollectionRows(t *testing.T) {
	store := newFakeStore()
	interceptor := NewInterceptor(NewManager(store, nil, ""))
	ctx := context.Background()

	if _, err := interceptor.manager.AddExperience(ctx, "deploy failed", []string{"deploy.run"}, "failure", "timeout", "increase timeout", ""); err != nil {
		t.Fatal(err)
	}

	rows, err := interceptor.Recall(ctx, "deploy failed", 3)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Query != "deploy failed" || rows[0].Reflection != "increase timeout" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestFormatForContextRendersEmptyAsEmptyString(t *testing.T) {
	if got := FormatForContext(nil); got != "" {
		t.Errorf("FormatForContext(nil) = %q, want empty", got)
	}
}

func TestSuggestionForMatchesKnownErrorKeywords(t *testing.T) {
	cases := map[string]string{
		"lock file exists":     "lock file",
		"permission denied":    "permission",
		"file not found":       "exists",
		"operation timeout":    "timeout",
		"something else broke": "Review",
	}
	for errMsg, want := range cases {
		if got := suggestionFor(errMsg); !containsAll(got, want) {
			t.Errorf("suggestionFor(%q) = %q, want it to contain %q", errMsg, got, want)
		}
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
