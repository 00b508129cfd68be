package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/coinjar/internal/config"
	"github.com/dukerupert/coinjar/internal/database"
	"github.com/dukerupert/coinjar/internal/model"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Timezone:        "UTC",
		SnapshotBackend: config.BackendSQLite,
		TriggerInterval: time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(context.Background(), db, cfg, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Router()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "192.168.1.20:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func createChild(t *testing.T, h http.Handler, name string) model.Child {
	t.Helper()
	rec := do(t, h, "POST", "/api/children", map[string]any{"name": name})
	mustStatus(t, rec, http.StatusCreated)
	return decode[model.Child](t, rec)
}

func createTask(t *testing.T, h http.Handler, name string, rate int) model.RewardTask {
	t.Helper()
	rec := do(t, h, "POST", "/api/tasks", map[string]any{"name": name, "rate": rate})
	mustStatus(t, rec, http.StatusCreated)
	return decode[model.RewardTask](t, rec)
}

func recordActivity(t *testing.T, h http.Handler, childID, taskID int64, at time.Time) {
	t.Helper()
	rec := do(t, h, "POST", "/api/activities", map[string]any{"child_id": childID, "task_id": taskID, "completed_at": at})
	mustStatus(t, rec, http.StatusCreated)
}

// twoMonthsAgo is mid-month so it never lands in the current month.
func twoMonthsAgo() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month()-2, 15, 12, 0, 0, 0, time.UTC)
}

type arrears struct {
	Periods          []model.UnpaidPeriod `json:"periods"`
	TotalOutstanding int                  `json:"total_outstanding"`
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t)
	rec := do(t, h, "GET", "/health", nil)
	mustStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec)["status"]; got != "ok" {
		t.Errorf("status = %v", got)
	}
}

func TestChildValidation(t *testing.T) {
	h := setupTestServer(t)
	createChild(t, h, "Ada")

	mustStatus(t, do(t, h, "POST", "/api/children", map[string]any{"name": "Ada"}), http.StatusConflict)
	mustStatus(t, do(t, h, "POST", "/api/children", map[string]any{"name": "  "}), http.StatusBadRequest)
	mustStatus(t, do(t, h, "POST", "/api/children", map[string]any{"name": "Ben", "color": "red"}), http.StatusBadRequest)

	rec := do(t, h, "GET", "/api/children", nil)
	mustStatus(t, rec, http.StatusOK)
	if got := decode[[]model.Child](t, rec); len(got) != 1 {
		t.Errorf("children = %+v", got)
	}
}

func TestTaskDefaultsAndFilter(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, "POST", "/api/tasks", map[string]any{"name": "Feed cat"})
	mustStatus(t, rec, http.StatusCreated)
	if task := decode[model.RewardTask](t, rec); task.Rate != model.DefaultRate || !task.Active {
		t.Errorf("task = %+v", task)
	}
	mustStatus(t, do(t, h, "POST", "/api/tasks", map[string]any{"name": "Old", "active": false}), http.StatusCreated)

	rec = do(t, h, "GET", "/api/tasks?status=inactive", nil)
	mustStatus(t, rec, http.StatusOK)
	inactive := decode[[]model.RewardTask](t, rec)
	if len(inactive) != 1 || inactive[0].Name != "Old" {
		t.Errorf("inactive = %+v", inactive)
	}

	mustStatus(t, do(t, h, "GET", "/api/tasks?status=bogus", nil), http.StatusBadRequest)
}

func TestUpdateActivity(t *testing.T) {
	h := setupTestServer(t)
	child := createChild(t, h, "Ada")
	dishes := createTask(t, h, "Dishes", 15)
	laundry := createTask(t, h, "Laundry", 20)
	rec := do(t, h, "POST", "/api/tasks", map[string]any{"name": "Old", "active": false})
	mustStatus(t, rec, http.StatusCreated)
	old := decode[model.RewardTask](t, rec)

	rec = do(t, h, "POST", "/api/activities", map[string]any{"child_id": child.ID, "task_id": dishes.ID, "completed_at": twoMonthsAgo()})
	mustStatus(t, rec, http.StatusCreated)
	record := decode[model.ActivityRecord](t, rec)
	path := fmt.Sprintf("/api/activities/%d", record.ID)
	arrearsPath := fmt.Sprintf("/api/children/%d/arrears", child.ID)

	rec = do(t, h, "PUT", path, map[string]any{"task_id": laundry.ID})
	mustStatus(t, rec, http.StatusOK)
	updated := decode[model.ActivityRecord](t, rec)
	if updated.TaskID != laundry.ID || !updated.CompletedAt.Equal(record.CompletedAt) {
		t.Errorf("updated = %+v, want laundry at %v", updated, record.CompletedAt)
	}
	if got := decode[arrears](t, do(t, h, "GET", arrearsPath, nil)); got.TotalOutstanding != 20 {
		t.Errorf("outstanding after task change = %d, want 20", got.TotalOutstanding)
	}

	mustStatus(t, do(t, h, "PUT", path, map[string]any{"completed_at": time.Now().UTC()}), http.StatusOK)
	if got := decode[arrears](t, do(t, h, "GET", arrearsPath, nil)); got.TotalOutstanding != 0 {
		t.Errorf("outstanding after moving to this month = %d, want 0", got.TotalOutstanding)
	}
	if got := decode[model.Earnings](t, do(t, h, "GET", fmt.Sprintf("/api/children/%d/earnings", child.ID), nil)); got.Amount != 20 {
		t.Errorf("earnings = %+v, want 20 coins", got)
	}

	mustStatus(t, do(t, h, "PUT", path, map[string]any{"task_id": old.ID}), http.StatusBadRequest)
	mustStatus(t, do(t, h, "PUT", path, map[string]any{"task_id": 999}), http.StatusBadRequest)
	mustStatus(t, do(t, h, "PUT", "/api/activities/999", map[string]any{"task_id": dishes.ID}), http.StatusNotFound)
}

func TestEarningsThisMonth(t *testing.T) {
	h := setupTestServer(t)
	child := createChild(t, h, "Ada")
	task := createTask(t, h, "Dishes", 15)

	now := time.Now().UTC()
	recordActivity(t, h, child.ID, task.ID, now)
	recordActivity(t, h, child.ID, task.ID, now)
	recordActivity(t, h, child.ID, task.ID, twoMonthsAgo())

	rec := do(t, h, "GET", fmt.Sprintf("/api/children/%d/earnings", child.ID), nil)
	mustStatus(t, rec, http.StatusOK)
	got := decode[model.Earnings](t, rec)
	if got.Amount != 30 || got.StreakDays != 1 {
		t.Errorf("earnings = %+v, want 30 coins and a 1 day streak", got)
	}

	mustStatus(t, do(t, h, "GET", "/api/children/999/earnings", nil), http.StatusNotFound)
}

func TestArrearsAndManualSettlement(t *testing.T) {
	h := setupTestServer(t)
	child := createChild(t, h, "Ada")
	task := createTask(t, h, "Dishes", 20)
	past := twoMonthsAgo()
	recordActivity(t, h, child.ID, task.ID, past)
	recordActivity(t, h, child.ID, task.ID, past.Add(time.Hour))

	arrearsPath := fmt.Sprintf("/api/children/%d/arrears", child.ID)
	rec := do(t, h, "GET", arrearsPath, nil)
	mustStatus(t, rec, http.StatusOK)
	got := decode[arrears](t, rec)
	if got.TotalOutstanding != 40 || len(got.Periods) != 1 {
		t.Fatalf("arrears = %+v", got)
	}
	if got.Periods[0].Month != int(past.Month()) || got.Periods[0].Year != past.Year() {
		t.Errorf("period = %+v", got.Periods[0])
	}

	pay := map[string]any{"child_id": child.ID, "month": int(past.Month()), "year": past.Year(), "amount": 25, "note": "cash"}
	rec = do(t, h, "POST", "/api/settlements", pay)
	mustStatus(t, rec, http.StatusCreated)
	first := decode[model.Settlement](t, rec)

	if got := decode[arrears](t, do(t, h, "GET", arrearsPath, nil)); got.TotalOutstanding != 15 {
		t.Errorf("after partial payment outstanding = %d, want 15", got.TotalOutstanding)
	}

	pay["amount"] = 15
	pay["note"] = "rest"
	rec = do(t, h, "POST", "/api/settlements", pay)
	mustStatus(t, rec, http.StatusOK)
	second := decode[model.Settlement](t, rec)
	if second.ID != first.ID || second.Amount != 40 {
		t.Errorf("supplemental payment = %+v, want same id with 40", second)
	}
	if second.Note == nil || *second.Note != "cash" {
		t.Errorf("note = %v, want the first payment's note", second.Note)
	}

	if got := decode[arrears](t, do(t, h, "GET", arrearsPath, nil)); got.TotalOutstanding != 0 || len(got.Periods) != 0 {
		t.Errorf("after full payment arrears = %+v", got)
	}

	rec = do(t, h, "GET", fmt.Sprintf("/api/children/%d/settlements", child.ID), nil)
	mustStatus(t, rec, http.StatusOK)
	if list := decode[[]model.Settlement](t, rec); len(list) != 1 {
		t.Errorf("settlements = %+v", list)
	}
}

func TestSettlementValidation(t *testing.T) {
	h := setupTestServer(t)
	child := createChild(t, h, "Ada")

	mustStatus(t, do(t, h, "POST", "/api/settlements", map[string]any{"child_id": child.ID, "month": 13, "year": 2026, "amount": 5}), http.StatusBadRequest)
	mustStatus(t, do(t, h, "POST", "/api/settlements", map[string]any{"child_id": child.ID, "month": 3, "year": 2026, "amount": -5}), http.StatusBadRequest)
	mustStatus(t, do(t, h, "POST", "/api/settlements", map[string]any{"child_id": child.ID, "month": 3, "year": 0, "amount": 5}), http.StatusBadRequest)
	mustStatus(t, do(t, h, "POST", "/api/settlements", map[string]any{"child_id": 999, "month": 3, "year": 2026, "amount": 5}), http.StatusBadRequest)
}

func TestSettleArrearsAndDelete(t *testing.T) {
	h := setupTestServer(t)
	child := createChild(t, h, "Ada")
	task := createTask(t, h, "Dishes", 12)
	recordActivity(t, h, child.ID, task.ID, twoMonthsAgo())

	rec := do(t, h, "POST", fmt.Sprintf("/api/children/%d/arrears/settle", child.ID), nil)
	mustStatus(t, rec, http.StatusOK)
	paid := decode[[]model.Settlement](t, rec)
	if len(paid) != 1 || paid[0].Amount != 12 {
		t.Fatalf("paid = %+v", paid)
	}

	mustStatus(t, do(t, h, "DELETE", "/api/settlements/"+paid[0].ID, nil), http.StatusNoContent)
	mustStatus(t, do(t, h, "DELETE", "/api/settlements/"+paid[0].ID, nil), http.StatusNotFound)

	if got := decode[arrears](t, do(t, h, "GET", fmt.Sprintf("/api/children/%d/arrears", child.ID), nil)); got.TotalOutstanding != 12 {
		t.Errorf("outstanding after delete = %d, want 12", got.TotalOutstanding)
	}
}

func TestPaymentSettings(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, "GET", "/api/settings/payment", nil)
	mustStatus(t, rec, http.StatusOK)
	if cfg := decode[model.PaymentConfig](t, rec); cfg != model.DefaultPaymentConfig() {
		t.Errorf("default cfg = %+v", cfg)
	}

	mustStatus(t, do(t, h, "PUT", "/api/settings/payment", map[string]any{"payment_day_of_month": 0}), http.StatusBadRequest)

	rec = do(t, h, "PUT", "/api/settings/payment", map[string]any{"auto_settlement_enabled": false})
	mustStatus(t, rec, http.StatusOK)
	if cfg := decode[model.PaymentConfig](t, rec); cfg.AutoSettlementEnabled || cfg.PaymentDayOfMonth != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestHomeRunsAutoSettlement(t *testing.T) {
	h := setupTestServer(t)
	child := createChild(t, h, "Ada")
	task := createTask(t, h, "Dishes", 10)

	now := time.Now().UTC()
	mustStatus(t, do(t, h, "PUT", "/api/settings/payment", map[string]any{"payment_day_of_month": now.Day()}), http.StatusOK)
	recordActivity(t, h, child.ID, task.ID, now)

	rec := do(t, h, "GET", "/api/home", nil)
	mustStatus(t, rec, http.StatusOK)
	var res struct {
		RolledOver bool                     `json:"rolled_over"`
		Settled    []model.SettlementResult `json:"settled"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RolledOver {
		t.Error("first refresh should not report a rollover")
	}
	if len(res.Settled) != 1 || res.Settled[0].Amount != 10 || res.Settled[0].ChildName != "Ada" {
		t.Fatalf("settled = %+v", res.Settled)
	}

	rec = do(t, h, "POST", "/api/settlements/auto", nil)
	mustStatus(t, rec, http.StatusOK)
	if again := decode[[]model.SettlementResult](t, rec); len(again) != 0 {
		t.Errorf("second run settled %+v", again)
	}
}

func TestOverview(t *testing.T) {
	h := setupTestServer(t)
	ada := createChild(t, h, "Ada")
	ben := createChild(t, h, "Ben")
	task := createTask(t, h, "Dishes", 10)
	recordActivity(t, h, ada.ID, task.ID, time.Now().UTC())
	recordActivity(t, h, ben.ID, task.ID, twoMonthsAgo())

	rec := do(t, h, "GET", "/api/overview", nil)
	mustStatus(t, rec, http.StatusOK)
	var rows []struct {
		Child            model.Child    `json:"child"`
		Earnings         model.Earnings `json:"earnings"`
		TotalOutstanding int            `json:"total_outstanding"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Child.ID != ada.ID || rows[0].Earnings.Amount != 10 || rows[0].TotalOutstanding != 0 {
		t.Errorf("ada = %+v", rows[0])
	}
	if rows[1].Child.ID != ben.ID || rows[1].Earnings.Amount != 0 || rows[1].TotalOutstanding != 10 {
		t.Errorf("ben = %+v", rows[1])
	}
}

func TestAutoRunIsRateLimited(t *testing.T) {
	h := setupTestServer(t)
	for range 10 {
		mustStatus(t, do(t, h, "POST", "/api/settlements/auto", nil), http.StatusOK)
	}
	mustStatus(t, do(t, h, "POST", "/api/settlements/auto", nil), http.StatusTooManyRequests)
}
