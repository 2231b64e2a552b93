package ops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pledgegate/pledgegate/internal/audit"
	"github.com/pledgegate/pledgegate/internal/config"
	"github.com/pledgegate/pledgegate/internal/gate"
	"github.com/pledgegate/pledgegate/internal/ledger"
	"github.com/pledgegate/pledgegate/internal/notify"
	"github.com/pledgegate/pledgegate/internal/telegram"
)

type stubGateway struct {
	mu        sync.Mutex
	approvals []int64
}

func (g *stubGateway) SendMessage(context.Context, int64, string, *telegram.InlineKeyboardMarkup) (*telegram.Message, error) {
	return &telegram.Message{MessageID: 1}, nil
}

func (g *stubGateway) CopyMessages(context.Context, int64, int64, []int) error { return nil }

func (g *stubGateway) ApproveJoinRequest(_ context.Context, chatID, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.approvals = append(g.approvals, chatID)
	return nil
}

func (g *stubGateway) AnswerCallbackQuery(context.Context, string, string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Store, *stubGateway) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gw := &stubGateway{}
	engine := gate.NewEngine(config.EngineConfig{}, store, gw, nil,
		audit.NewPublisher(config.AuditConfig{}), notify.NewNotifier(config.NotifyConfig{}))
	ts := httptest.NewServer(NewServer(config.OpsConfig{}, store, engine).Router())
	t.Cleanup(ts.Close)
	return ts, store, gw
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t)
	body := getJSON(t, ts.URL+"/healthz")
	if body["ok"] != true {
		t.Errorf("healthz body = %v", body)
	}
}

func TestStatusReportsLedgerAndCursor(t *testing.T) {
	ts, store, _ := newTestServer(t)
	if _, err := store.UpsertUser(5, "Mira", "summer_drive"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GrantConsent(5); err != nil {
		t.Fatal(err)
	}
	if err := store.AddPendingJoin(6, -100); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSetting("update_cursor", "17"); err != nil {
		t.Fatal(err)
	}

	body := getJSON(t, ts.URL+"/api/v1/status")
	if body["update_cursor"] != "17" {
		t.Errorf("update_cursor = %v", body["update_cursor"])
	}
	stats, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats missing from body: %v", body)
	}
	if stats["total_users"] != float64(1) || stats["consented_users"] != float64(1) {
		t.Errorf("unexpected stats: %v", stats)
	}
	if stats["pending_joins"] != float64(1) {
		t.Errorf("pending_joins = %v", stats["pending_joins"])
	}
}

func TestPendingEndpointHonorsLimit(t *testing.T) {
	ts, store, _ := newTestServer(t)
	for _, c := range []int64{-1, -2, -3} {
		if err := store.AddPendingJoin(5, c); err != nil {
			t.Fatal(err)
		}
	}

	body := getJSON(t, ts.URL+"/api/v1/pending")
	if got := len(body["pending"].([]any)); got != 3 {
		t.Errorf("pending length = %d, want 3", got)
	}

	body = getJSON(t, ts.URL+"/api/v1/pending?limit=2")
	if got := len(body["pending"].([]any)); got != 2 {
		t.Errorf("limited pending length = %d, want 2", got)
	}
}

func TestFailuresEndpoint(t *testing.T) {
	ts, store, _ := newTestServer(t)
	if err := store.RecordApprovalFailure(5, -1, "bot was kicked"); err != nil {
		t.Fatal(err)
	}

	body := getJSON(t, ts.URL+"/api/v1/failures")
	failures := body["failures"].([]any)
	if len(failures) != 1 {
		t.Fatalf("failures length = %d, want 1", len(failures))
	}
	entry := failures[0].(map[string]any)
	if entry["reason"] != "bot was kicked" {
		t.Errorf("reason = %v", entry["reason"])
	}
}

func TestSweepEndpointDrainsParkedJoins(t *testing.T) {
	ts, store, gw := newTestServer(t)
	if _, err := store.UpsertUser(5, "Mira", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GrantConsent(5); err != nil {
		t.Fatal(err)
	}
	if err := store.AddPendingJoin(5, -100); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/api/v1/sweep", "application/json", nil)
	if err != nil {
		t.Fatalf("POST sweep: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sweep status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	reports := body["reports"].([]any)
	if len(reports) != 1 {
		t.Fatalf("reports length = %d, want 1", len(reports))
	}

	gw.mu.Lock()
	approvals := len(gw.approvals)
	gw.mu.Unlock()
	if approvals != 1 {
		t.Errorf("approvals = %d, want 1", approvals)
	}
	if n, _ := store.CountPendingJoins(); n != 0 {
		t.Errorf("pending joins after sweep = %d, want 0", n)
	}
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
