package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/kv/memory"
	"ledger/internal/ledger"
)

var testNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *ledger.Store, *memory.Store) {
	t.Helper()
	kvs := memory.New()
	store := ledger.New(context.Background(), kvs)
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	srv := NewServer(":0", store, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store, kvs
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func seed(t *testing.T, store *ledger.Store) []int64 {
	t.Helper()
	ctx := context.Background()
	return []int64{
		store.Add(ctx, core.Transaction{Description: "salary", Amount: 100, Category: "Job", Type: core.Income, Date: "2024-01-05"}),
		store.Add(ctx, core.Transaction{Description: "food", Amount: 40, Category: "Food", Type: core.Expense, Date: "2024-01-20"}),
		store.Add(ctx, core.Transaction{Description: "bus", Amount: 10, Category: "Transport", Type: core.Expense, Date: "2024-02-02"}),
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestMetricsReportsCounters(t *testing.T) {
	srv, store, _ := newTestServer(t, WithRateLimit(1))
	seed(t, store)

	do(t, srv, http.MethodGet, "/transactions", "")
	do(t, srv, http.MethodDelete, "/transactions/1", "")
	if rr := do(t, srv, http.MethodDelete, "/transactions/1", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second delete status=%d, want 429", rr.Code)
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	var got metricsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	// the metrics request itself is counted before its handler runs
	if got.Requests.Total != 4 {
		t.Errorf("requests.total = %d, want 4", got.Requests.Total)
	}
	if got.RateLimit == nil || got.RateLimit.Hits != 1 || got.RateLimit.Clients != 1 {
		t.Errorf("rate_limit = %+v, want 1 hit from 1 client", got.RateLimit)
	}
	if got.Ledger.Count != 3 {
		t.Errorf("ledger.count = %d, want 3", got.Ledger.Count)
	}
}

func TestMetricsWithoutLimiter(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if strings.Contains(rr.Body.String(), "rate_limit") {
		t.Fatalf("rate_limit reported with limiter disabled: %s", rr.Body)
	}
}

func TestReadyFailing(t *testing.T) {
	srv, _, _ := newTestServer(t, WithReadinessCheck(func(context.Context) error {
		return errors.New("slot unreadable")
	}))
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, store, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/transactions",
		`{"description":"coffee","amount":"3,50","category":"Food","type":"expense","date":"2024-03-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	var created createdResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := store.Get(created.ID)
	if !ok {
		t.Fatalf("transaction %d not stored", created.ID)
	}
	if got.Amount != 3.5 || got.Description != "coffee" || got.Type != core.Expense {
		t.Fatalf("stored %+v", got)
	}
}

func TestCreateTransactionDefaultsDateToToday(t *testing.T) {
	srv, store, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/transactions",
		`{"description":"gift","amount":25,"category":"Other","type":"income"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	all := store.All()
	if len(all) != 1 || all[0].Date != "2024-03-15" {
		t.Fatalf("stored %+v", all)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"unknown field", `{"description":"x","amount":1,"type":"income","date":"2024-01-01","color":"red"}`, http.StatusBadRequest},
		{"missing description", `{"amount":1,"type":"income","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"description":"x","amount":-1,"type":"income","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"amount not a number", `{"description":"x","amount":"abc","type":"income","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"description":"x","amount":1,"type":"refund","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"description":"x","amount":1,"type":"income","date":"2024-13-01"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store, _ := newTestServer(t)
			rr := do(t, srv, http.MethodPost, "/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.want, rr.Body)
			}
			if store.Len() != 0 {
				t.Fatal("invalid request stored a transaction")
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Fatalf("error body missing: %s", rr.Body)
			}
		})
	}
}

func TestListTransactionsFiltersAndSorts(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seed(t, store)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"bus", "food", "salary"}},
		{"?sort=date-asc", []string{"salary", "food", "bus"}},
		{"?sort=amount-desc", []string{"salary", "food", "bus"}},
		{"?type=expense&sort=amount-asc", []string{"bus", "food"}},
		{"?type=all&month=2024-01", []string{"food", "salary"}},
		{"?category=Transport", []string{"bus"}},
		{"?sort=bogus", []string{"bus", "food", "salary"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/transactions"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			var resp listResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var got []string
			for _, tx := range resp.Transactions {
				got = append(got, tx.Description)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") || resp.Count != len(tt.want) {
				t.Fatalf("got %v (count %d), want %v", got, resp.Count, tt.want)
			}
		})
	}
}

func TestListTransactionsBadQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, q := range []string{"?type=refund", "?month=2024-1", "?month=January"} {
		if rr := do(t, srv, http.MethodGet, "/transactions"+q, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d, want 400", q, rr.Code)
		}
	}
}

func TestGetTransaction(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ids := seed(t, store)

	rr := do(t, srv, http.MethodGet, "/transactions/"+itoa(ids[1]), "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"food"`) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, srv, http.MethodGet, "/transactions/1", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d, want 404", rr.Code)
	}
}

func TestPatchTransaction(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ids := seed(t, store)

	rr := do(t, srv, http.MethodPatch, "/transactions/"+itoa(ids[1]), `{"amount":"42.10","notes":"weekly"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	got, _ := store.Get(ids[1])
	if got.Amount != 42.1 || got.Notes != "weekly" || got.Description != "food" || got.Category != "Food" {
		t.Fatalf("patched %+v", got)
	}
}

func TestPatchUnknownIDIsSilent(t *testing.T) {
	srv, store, kvs := newTestServer(t)
	seed(t, store)
	writes := kvs.Writes()

	rr := do(t, srv, http.MethodPatch, "/transactions/1", `{"description":"x"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", rr.Code)
	}
	if kvs.Writes() != writes {
		t.Fatal("no-op patch wrote the slot")
	}
}

func TestPatchValidation(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ids := seed(t, store)
	path := "/transactions/" + itoa(ids[0])

	for body, want := range map[string]int{
		`{}`:                   http.StatusUnprocessableEntity,
		`{"amount":-5}`:        http.StatusUnprocessableEntity,
		`{"type":"transfer"}`:  http.StatusUnprocessableEntity,
		`{"description":" "}`:  http.StatusUnprocessableEntity,
		`{"date":"yesterday"}`: http.StatusUnprocessableEntity,
		`not json`:             http.StatusBadRequest,
		`{"description":"` + strings.Repeat("d", core.MaxDescriptionLen+1) + `"}`: http.StatusUnprocessableEntity,
	} {
		if rr := do(t, srv, http.MethodPatch, path, body); rr.Code != want {
			t.Errorf("%s status=%d, want %d", body, rr.Code, want)
		}
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ids := seed(t, store)

	if rr := do(t, srv, http.MethodDelete, "/transactions/"+itoa(ids[0]), ""); rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	if _, ok := store.Get(ids[0]); ok {
		t.Fatal("transaction still present")
	}
	if rr := do(t, srv, http.MethodDelete, "/transactions/1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("unknown id status=%d, want 204", rr.Code)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
}

func TestClearRequiresBothConfirmations(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seed(t, store)

	for _, q := range []string{"", "?confirm=true", "?confirm_again=true", "?confirm=true&confirm_again=no"} {
		rr := do(t, srv, http.MethodPost, "/transactions/clear"+q, "")
		if rr.Code != http.StatusPreconditionRequired {
			t.Fatalf("%q status=%d, want 428", q, rr.Code)
		}
		if store.Len() != 3 {
			t.Fatalf("%q cleared without confirmation", q)
		}
	}

	rr := do(t, srv, http.MethodPost, "/transactions/clear?confirm=true&confirm_again=true", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	if store.Len() != 0 {
		t.Fatal("ledger not cleared")
	}
}

func TestSummaryUsesFullLedger(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seed(t, store)

	rr := do(t, srv, http.MethodGet, "/summary?type=income", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Totals != (core.Totals{Income: 100, Expense: 50, Balance: 50}) {
		t.Fatalf("totals = %+v", resp.Totals)
	}
	if resp.Savings != 50 {
		t.Fatalf("savings = %v", resp.Savings)
	}
	if resp.ExpenseByCategory["Food"] != 40 || resp.ExpenseByCategory["Transport"] != 10 {
		t.Fatalf("by category = %v", resp.ExpenseByCategory)
	}
	want := []core.MonthSummary{{Month: "2024-02", Income: 0, Expense: 10}, {Month: "2024-01", Income: 100, Expense: 40}}
	if len(resp.Monthly) != 2 || resp.Monthly[0] != want[0] || resp.Monthly[1] != want[1] {
		t.Fatalf("monthly = %+v", resp.Monthly)
	}
}

func TestExportCSV(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seed(t, store)

	rr := do(t, srv, http.MethodGet, "/export.csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "ledger-2024-03-15.csv") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 4 || lines[0] != "Date,Description,Category,Type,Amount,Notes" {
		t.Fatalf("csv = %q", rr.Body.String())
	}
	if lines[1] != `"2024-01-05","salary","Job","income","100.00",""` {
		t.Fatalf("first row = %q", lines[1])
	}
}

func TestExportPDF(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seed(t, store)

	rr := do(t, srv, http.MethodGet, "/export.pdf", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("body is not a PDF")
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	srv, _, _ := newTestServer(t, WithRateLimit(2))
	body := `{"description":"x","amount":1,"category":"c","type":"expense","date":"2024-01-01"}`

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodPost, "/transactions", body); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third POST status=%d, want 429", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/transactions", ""); rr.Code != http.StatusOK {
		t.Fatalf("GET limited: status=%d", rr.Code)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/summary", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if rr := do(t, srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/transactions", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", rr.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
