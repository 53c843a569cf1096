package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finstmt/internal/archive"
	"finstmt/internal/ingest"
	"finstmt/internal/infra/persistence/memory"
	"finstmt/internal/repository"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	repo := repository.New(store, zerolog.Nop())
	svc := ingest.NewService(repo, archive.NewMemory(), zerolog.Nop())
	ts := httptest.NewServer(NewServer(repo, svc, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/db-status", nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, env = %+v", resp.StatusCode, env)
	}
	data := env.Data.(map[string]any)
	if data["databaseType"] != "memory" || data["status"] != "connected" {
		t.Fatalf("data = %v", data)
	}
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	ts, _ := newTestServer(t)
	url := ts.URL + "/api/records/balance_sheet"

	body := map[string]any{
		"fiscal_year":      2024,
		"tax_id":           "12345678",
		"company_name":     "Acme",
		"cash_equivalents": "1,000",
	}
	resp, env := doJSON(t, http.MethodPost, url, body)
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("insert: status = %d, env = %+v", resp.StatusCode, env)
	}
	data := env.Data.(map[string]any)
	if data["inserted"] != true {
		t.Fatalf("data = %v", data)
	}

	resp, env = doJSON(t, http.MethodPost, url, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("re-upsert: status = %d", resp.StatusCode)
	}
	if env.Data.(map[string]any)["inserted"] != false {
		t.Fatal("re-upsert classified as insert")
	}
}

func TestUpsertValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/records/balance_sheet", map[string]any{
		"fiscal_year": 2024,
		"tax_id":      "123",
	})
	if resp.StatusCode != http.StatusBadRequest || env.Success {
		t.Fatalf("status = %d, env = %+v", resp.StatusCode, env)
	}
	if !strings.Contains(env.Error, "tax_id") {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestUnknownRecordType(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/records/ledger", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetUpdateDeleteByKey(t *testing.T) {
	ts, _ := newTestServer(t)
	base := ts.URL + "/api/records/balance_sheet"

	if resp, _ := doJSON(t, http.MethodGet, base+"/12345678/2024", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get absent = %d, want 404", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, base, map[string]any{
		"fiscal_year": 2024, "tax_id": "12345678", "inventory": 5,
	})

	resp, env := doJSON(t, http.MethodGet, base+"/12345678/2024", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d", resp.StatusCode)
	}
	rec := env.Data.(map[string]any)
	if rec["fiscal_year"] != float64(2024) || rec["tax_id"] != "12345678" {
		t.Fatalf("record = %v", rec)
	}

	resp, env = doJSON(t, http.MethodPut, base+"/12345678/2024", map[string]any{"inventory": 9})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("update = %d, %+v", resp.StatusCode, env)
	}

	resp, _ = doJSON(t, http.MethodDelete, base+"/12345678/2024", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, http.MethodDelete, base+"/12345678/2024", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestBatchEndpoint(t *testing.T) {
	ts, store := newTestServer(t)
	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/records/income_statement/batch", map[string]any{
		"records": []map[string]any{
			{"fiscal_year": 2024, "tax_id": "11111111", "operating_revenue_total": 100},
			{"fiscal_year": 2024, "tax_id": "bad"},
			{"fiscal_year": 2024, "tax_id": "22222222"},
		},
	})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, env = %+v", resp.StatusCode, env)
	}
	result := env.Data.(map[string]any)
	if result["inserted"] != float64(2) || result["skipped"] != float64(1) {
		t.Fatalf("result = %v", result)
	}
	if store.Len("income_statement") != 2 {
		t.Fatalf("stored = %d", store.Len("income_statement"))
	}
}

func TestBatchCeilingRejected(t *testing.T) {
	ts, store := newTestServer(t)
	rows := make([]map[string]any, repository.MaxBatchRows+1)
	for i := range rows {
		rows[i] = map[string]any{"fiscal_year": 2024, "tax_id": fmt.Sprintf("%08d", i+10000000)}
	}
	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/records/balance_sheet/batch", map[string]any{"records": rows})
	if resp.StatusCode != http.StatusBadRequest || env.Success {
		t.Fatalf("status = %d, env = %+v", resp.StatusCode, env)
	}
	if store.Len("balance_sheet") != 0 {
		t.Fatal("oversized batch reached storage")
	}
}

func TestBatchRequiresNonEmptyRecords(t *testing.T) {
	ts, _ := newTestServer(t)
	url := ts.URL + "/api/records/balance_sheet/batch"
	for _, body := range []map[string]any{
		{},
		{"records": []map[string]any{}},
	} {
		resp, env := doJSON(t, http.MethodPost, url, body)
		if resp.StatusCode != http.StatusBadRequest || env.Success {
			t.Fatalf("body %v: status = %d, env = %+v", body, resp.StatusCode, env)
		}
		if !strings.Contains(env.Error, "records") {
			t.Fatalf("error = %q", env.Error)
		}
	}
}

func TestCompaniesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/records/balance_sheet", map[string]any{
		"fiscal_year": 2024, "tax_id": "12345678", "company_name": "Acme",
	})
	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/companies", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	companies := env.Data.([]any)
	if len(companies) != 1 {
		t.Fatalf("companies = %v", companies)
	}
	c := companies[0].(map[string]any)
	if c["taxId"] != "12345678" || c["name"] != "Acme" {
		t.Fatalf("company = %v", c)
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	ts, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/companies", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestMetricsExposed(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}
