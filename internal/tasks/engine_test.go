package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kiloex-bot/internal/exchange/kiloex"
	"kiloex-bot/internal/metrics"
)

func testMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry(prometheus.NewRegistry())
}

func ptr(v int64) *int64 { return &v }

func TestEligible(t *testing.T) {
	tests := []struct {
		name  string
		task  kiloex.Task
		stats kiloex.TaskStats
		want  bool
	}{
		{
			name: "locked task never eligible",
			task: kiloex.Task{Type: kiloex.TaskMining, UnlockID: ptr(9),
				Requirement: []kiloex.Requirement{{Amount: 1}}},
			stats: kiloex.TaskStats{Mining: 1000},
			want:  false,
		},
		{
			name:  "channel speed task never eligible",
			task:  kiloex.Task{Type: kiloex.TaskSpeedChannel},
			stats: kiloex.TaskStats{},
			want:  false,
		},
		{
			name:  "mining below threshold",
			task:  kiloex.Task{Type: kiloex.TaskMining, Requirement: []kiloex.Requirement{{Amount: 100}}},
			stats: kiloex.TaskStats{Mining: 99},
			want:  false,
		},
		{
			name:  "mining at threshold",
			task:  kiloex.Task{Type: kiloex.TaskMining, Requirement: []kiloex.Requirement{{Amount: 100}}},
			stats: kiloex.TaskStats{Mining: 100},
			want:  true,
		},
		{
			name:  "trade volume above threshold",
			task:  kiloex.Task{Type: kiloex.TaskTradeCoin, Requirement: []kiloex.Requirement{{Amount: 500}}},
			stats: kiloex.TaskStats{TradeVolume: 501},
			want:  true,
		},
		{
			name:  "trade volume below threshold",
			task:  kiloex.Task{Type: kiloex.TaskTradeCoin, Requirement: []kiloex.Requirement{{Amount: 500}}},
			stats: kiloex.TaskStats{TradeVolume: 499},
			want:  false,
		},
		{
			name:  "referral at threshold",
			task:  kiloex.Task{Type: kiloex.TaskReferral, Requirement: []kiloex.Requirement{{Amount: 3}}},
			stats: kiloex.TaskStats{InviteNum: 3},
			want:  true,
		},
		{
			name:  "referral below threshold",
			task:  kiloex.Task{Type: kiloex.TaskReferral, Requirement: []kiloex.Requirement{{Amount: 3}}},
			stats: kiloex.TaskStats{InviteNum: 2},
			want:  false,
		},
		{
			name:  "untyped task vacuously eligible",
			task:  kiloex.Task{Type: "other"},
			stats: kiloex.TaskStats{},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.task, tt.stats); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

// taskServer serves a fixed task list and counts report/claim calls.
type taskServer struct {
	mu       sync.Mutex
	listBody string
	reports  int
	claims   int
}

func (s *taskServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/noviceTask/tglist", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, s.listBody)
	})
	mux.HandleFunc("/noviceTask/report", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.reports++
		s.mu.Unlock()
		fmt.Fprint(w, `{"status":true,"data":{"status":true}}`)
	})
	mux.HandleFunc("/noviceTask/claim", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.claims++
		s.mu.Unlock()
		fmt.Fprint(w, `{"status":true,"data":[{"name":"points","number":50}]}`)
	})
	return mux
}

func (s *taskServer) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports, s.claims
}

func runEngine(t *testing.T, listBody string) (reports, claims int) {
	t.Helper()
	ts := &taskServer{listBody: listBody}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	client := kiloex.New(srv.URL, 5*time.Second)
	engine := New(client, testMetrics(), nil, 0)

	if err := engine.ProcessAll(context.Background(), "123", "alice"); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	return ts.counts()
}

func TestProcessAllReportsAndClaimsEligibleTask(t *testing.T) {
	reports, claims := runEngine(t, `{"status":true,"data":{
		"list":[{"id":1,"name":"勤劳矿工1","type":"mining","unlockId":null,"requirement":[{"amount":5}],"doneTime":null,"receiveTime":null}],
		"tradeVolume":0,"mining":10,"inviteNum":0}}`)

	if reports != 1 || claims != 1 {
		t.Errorf("expected 1 report and 1 claim, got %d/%d", reports, claims)
	}
}

func TestProcessAllSkipsCompletedTask(t *testing.T) {
	reports, claims := runEngine(t, `{"status":true,"data":{
		"list":[{"id":1,"name":"done","type":"mining","unlockId":null,"requirement":[{"amount":5}],"doneTime":1700000000,"receiveTime":null},
		        {"id":2,"name":"received","type":"mining","unlockId":null,"requirement":[{"amount":5}],"doneTime":null,"receiveTime":1700000000}],
		"tradeVolume":0,"mining":10,"inviteNum":0}}`)

	if reports != 0 || claims != 0 {
		t.Errorf("completed tasks must not be reported or claimed, got %d/%d", reports, claims)
	}
}

func TestProcessAllSkipsLockedTask(t *testing.T) {
	reports, claims := runEngine(t, `{"status":true,"data":{
		"list":[{"id":1,"name":"locked","type":"mining","unlockId":7,"requirement":[{"amount":5}],"doneTime":null,"receiveTime":null}],
		"tradeVolume":0,"mining":1000,"inviteNum":0}}`)

	if reports != 0 || claims != 0 {
		t.Errorf("locked tasks must not be reported or claimed, got %d/%d", reports, claims)
	}
}

func TestProcessAllSkipsChannelTasks(t *testing.T) {
	reports, claims := runEngine(t, `{"status":true,"data":{
		"list":[{"id":1,"name":"join","type":"subscribe_tg_channel","unlockId":null,"requirement":[],"doneTime":null,"receiveTime":null},
		        {"id":2,"name":"boost","type":"speed_tg_channel","unlockId":null,"requirement":[],"doneTime":null,"receiveTime":null}],
		"tradeVolume":0,"mining":0,"inviteNum":0}}`)

	if reports != 0 || claims != 0 {
		t.Errorf("channel tasks must not be reported or claimed, got %d/%d", reports, claims)
	}
}

// The category pre-gate skips the whole per-task pass when any typed
// category's minimum requirement is out of reach, even if a task in
// another category would individually qualify.
func TestCategoryPreGateSkipsWholePass(t *testing.T) {
	reports, claims := runEngine(t, `{"status":true,"data":{
		"list":[{"id":1,"name":"miner","type":"mining","unlockId":null,"requirement":[{"amount":1000}],"doneTime":null,"receiveTime":null},
		        {"id":2,"name":"trader","type":"trade_coin","unlockId":null,"requirement":[{"amount":10}],"doneTime":null,"receiveTime":null}],
		"tradeVolume":50,"mining":1,"inviteNum":0}}`)

	if reports != 0 || claims != 0 {
		t.Errorf("pre-gate should skip the pass, got %d reports %d claims", reports, claims)
	}
}

// The pre-gate only checks the lowest threshold per category: clearing it
// lets the pass run even though a higher task in the same category stays
// ineligible.
func TestCategoryPreGateUsesMinimumThreshold(t *testing.T) {
	reports, claims := runEngine(t, `{"status":true,"data":{
		"list":[{"id":1,"name":"small","type":"mining","unlockId":null,"requirement":[{"amount":5}],"doneTime":null,"receiveTime":null},
		        {"id":2,"name":"big","type":"mining","unlockId":null,"requirement":[{"amount":1000}],"doneTime":null,"receiveTime":null}],
		"tradeVolume":0,"mining":10,"inviteNum":0}}`)

	if reports != 1 || claims != 1 {
		t.Errorf("expected only the low-threshold task processed, got %d/%d", reports, claims)
	}
}

// A rejected report on one task is non-fatal: the pass moves on and the
// next task is still reported and claimed.
func TestProcessAllContinuesAfterReportFailure(t *testing.T) {
	listBody := `{"status":true,"data":{
		"list":[{"id":1,"name":"first","type":"mining","unlockId":null,"requirement":[{"amount":5}],"doneTime":null,"receiveTime":null},
		        {"id":2,"name":"second","type":"mining","unlockId":null,"requirement":[{"amount":5}],"doneTime":null,"receiveTime":null}],
		"tradeVolume":0,"mining":10,"inviteNum":0}}`

	var mu sync.Mutex
	var reported, claimed []int64

	mux := http.NewServeMux()
	mux.HandleFunc("/noviceTask/tglist", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listBody)
	})
	mux.HandleFunc("/noviceTask/report", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID int64 `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode report body: %v", err)
		}
		mu.Lock()
		reported = append(reported, body.ID)
		mu.Unlock()
		if body.ID == 1 {
			fmt.Fprint(w, `{"status":false,"msg":"report rejected"}`)
			return
		}
		fmt.Fprint(w, `{"status":true,"data":{"status":true}}`)
	})
	mux.HandleFunc("/noviceTask/claim", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID int64 `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode claim body: %v", err)
		}
		mu.Lock()
		claimed = append(claimed, body.ID)
		mu.Unlock()
		fmt.Fprint(w, `{"status":true,"data":[{"name":"points","number":50}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := kiloex.New(srv.URL, 5*time.Second)
	engine := New(client, testMetrics(), nil, 0)

	if err := engine.ProcessAll(context.Background(), "123", "alice"); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 2 || reported[0] != 1 || reported[1] != 2 {
		t.Errorf("expected both tasks reported in order, got %v", reported)
	}
	if len(claimed) != 1 || claimed[0] != 2 {
		t.Errorf("expected only the second task claimed, got %v", claimed)
	}
}

func TestProcessAllListFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":false,"msg":"service unavailable"}`)
	}))
	defer srv.Close()

	client := kiloex.New(srv.URL, 5*time.Second)
	engine := New(client, testMetrics(), nil, 0)

	if err := engine.ProcessAll(context.Background(), "123", "alice"); err == nil {
		t.Fatal("expected error when the task list fetch fails")
	}
}

func TestTranslateName(t *testing.T) {
	if got := TranslateName("勤劳矿工1"); got != "Diligent Miner 1" {
		t.Errorf("expected translation, got %q", got)
	}
	if got := TranslateName("unknown task"); got != "unknown task" {
		t.Errorf("unknown names must pass through, got %q", got)
	}
}
