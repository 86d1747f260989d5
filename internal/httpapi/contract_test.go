package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joelkehle/registry-intake/internal/registry"
)

func newContractServer(t *testing.T) http.Handler {
	t.Helper()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	store, err := registry.Open(registry.Config{
		DatabaseURL: ":memory:",
		Clock: func() time.Time {
			return now
		},
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(registry.NewService(store))
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(blob)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("http do: %v", err)
	}
	return resp
}

func mustStatus(t *testing.T, resp *http.Response, want int) []byte {
	t.Helper()
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(blob))
	}
	return blob
}

func decode(t *testing.T, blob []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(blob, dst); err != nil {
		t.Fatalf("decode %s: %v", string(blob), err)
	}
}

func TestContractAllEndpoints(t *testing.T) {
	ts := httptest.NewServer(newContractServer(t))
	defer ts.Close()
	c := ts.Client()

	// Health.
	blob := mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/health", nil), 200)
	var health map[string]any
	decode(t, blob, &health)
	if health["status"] != "ok" {
		t.Fatalf("health %+v", health)
	}

	// QC scan over a defective batch.
	scanReq := map[string]any{"records": []map[string]string{
		{"file_number": "ABC-1985-001"},
		{"file_number": "ABC-85-1"},
		{"file_number": "ABC-1985-1 TEMP"},
		{"file_number": ""},
	}}
	blob = mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/qc/scan", scanReq), 200)
	var scanResp struct {
		Issues []struct {
			RecordIndex  int    `json:"record_index"`
			Type         string `json:"issue_type"`
			SuggestedFix string `json:"suggested_fix"`
		} `json:"issues"`
		Counts map[string]int `json:"counts"`
	}
	decode(t, blob, &scanResp)
	if scanResp.Counts["padding"] != 1 || scanResp.Counts["year"] != 1 || scanResp.Counts["temp"] != 1 {
		t.Fatalf("counts %+v", scanResp.Counts)
	}

	// Apply the year fix and re-scan.
	fixReq := map[string]any{
		"records": []map[string]string{{"file_number": "ABC-85-1"}},
		"fixes":   []map[string]any{{"record_index": 0, "value": "ABC-1985-1"}},
	}
	blob = mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/qc/fixes", fixReq), 200)
	var fixResp struct {
		Records []map[string]string `json:"records"`
		Counts  map[string]int      `json:"counts"`
	}
	decode(t, blob, &fixResp)
	if fixResp.Records[0]["file_number"] != "ABC-1985-1" {
		t.Fatalf("fix not applied: %+v", fixResp.Records)
	}
	if len(fixResp.Counts) != 0 {
		t.Fatalf("fixed batch should be clean: %+v", fixResp.Counts)
	}

	// Assignment without persistence.
	assignReq := map[string]any{"source_table": "file_index", "records": []map[string]string{
		{"file_number": "X1"}, {"file_number": "X2"}, {"file_number": "X1"},
	}}
	blob = mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/assignments", assignReq), 200)
	var assignResp struct {
		Assignments []struct {
			PropertyID string `json:"property_id"`
			Status     string `json:"status"`
		} `json:"assignments"`
		Summary map[string]int `json:"summary"`
	}
	decode(t, blob, &assignResp)
	if len(assignResp.Assignments) != 3 || assignResp.Assignments[2].Status != "session_reused" {
		t.Fatalf("assignments %+v", assignResp.Assignments)
	}
	if assignResp.Summary["new"] != 2 || assignResp.Summary["session_reused"] != 1 {
		t.Fatalf("summary %+v", assignResp.Summary)
	}

	// Import duplicate spellings, then list and delete the group.
	importReq := map[string]any{"table": "file_index", "records": []map[string]string{
		{"file_number": "DUP-1990-5"},
		{"file_number": "dup-1990-5"},
		{"file_number": "DUP - 1990 - 5"},
	}}
	blob = mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/imports", importReq), 200)
	var importResp struct {
		Inserted int `json:"inserted"`
	}
	decode(t, blob, &importResp)
	if importResp.Inserted != 3 {
		t.Fatalf("import %+v", importResp)
	}

	blob = mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/duplicates?table=file_index&page=1&page_size=10", nil), 200)
	var dupResp struct {
		Groups []struct {
			GroupKey string `json:"group_key"`
			KeepID   int64  `json:"keep_id"`
			Records  []struct {
				ID     int64 `json:"id"`
				Locked bool  `json:"locked"`
			} `json:"records"`
		} `json:"groups"`
		Total int `json:"total"`
	}
	decode(t, blob, &dupResp)
	if dupResp.Total != 1 || len(dupResp.Groups) != 1 {
		t.Fatalf("duplicates %+v", dupResp)
	}
	group := dupResp.Groups[0]
	var deleteIDs []int64
	for _, rec := range group.Records {
		if rec.Locked != (rec.ID == group.KeepID) {
			t.Fatalf("locked flag mismatch: %+v", group)
		}
		if !rec.Locked {
			deleteIDs = append(deleteIDs, rec.ID)
		}
	}

	// keep_id inside delete_ids is rejected with 400 and deletes nothing.
	badDelete := map[string]any{"table": "file_index", "operations": []map[string]any{
		{"keep_id": group.KeepID, "delete_ids": append([]int64{group.KeepID}, deleteIDs...), "group_key": group.GroupKey},
	}}
	mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/duplicates/delete", badDelete), 400)

	goodDelete := map[string]any{"table": "file_index", "operations": []map[string]any{
		{"keep_id": group.KeepID, "delete_ids": deleteIDs, "group_key": group.GroupKey},
	}}
	blob = mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/duplicates/delete", goodDelete), 200)
	var delResp struct {
		Deleted int `json:"deleted"`
	}
	decode(t, blob, &delResp)
	if delResp.Deleted != 2 {
		t.Fatalf("deleted %+v", delResp)
	}

	blob = mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/duplicates?table=file_index", nil), 200)
	decode(t, blob, &dupResp)
	if dupResp.Total != 0 {
		t.Fatalf("group should be resolved: %+v", dupResp)
	}
}

func TestContractValidationErrors(t *testing.T) {
	ts := httptest.NewServer(newContractServer(t))
	defer ts.Close()
	c := ts.Client()

	blob := mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/duplicates?table=bogus", nil), 400)
	var errResp struct {
		OK    bool `json:"ok"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, blob, &errResp)
	if errResp.OK || errResp.Error.Code != "validation" {
		t.Fatalf("error envelope %+v", errResp)
	}

	mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/duplicates?table=cofo&partition=STAGING", nil), 400)
	mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/assignments", map[string]any{"source_table": "bogus"}), 400)

	// Malformed JSON body.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/qc/scan", bytes.NewReader([]byte("{not json")))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	mustStatus(t, resp, 400)

	// Wrong method.
	mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/duplicates", map[string]any{}), 405)
	mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/imports", nil), 405)
}

func TestContractPagination(t *testing.T) {
	ts := httptest.NewServer(newContractServer(t))
	defer ts.Close()
	c := ts.Client()

	var records []map[string]string
	for _, base := range []string{"AAA-1", "BBB-2", "CCC-3"} {
		records = append(records, map[string]string{"file_number": base})
		records = append(records, map[string]string{"file_number": base + " "})
	}
	mustStatus(t, doJSON(t, c, http.MethodPost, ts.URL+"/v1/imports",
		map[string]any{"table": "index_card", "records": records}), 200)

	var pageResp struct {
		Groups []struct {
			DisplayValue string `json:"display_value"`
		} `json:"groups"`
		Total    int `json:"total"`
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
	}
	blob := mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/duplicates?table=index_card&page=2&page_size=2", nil), 200)
	decode(t, blob, &pageResp)
	if pageResp.Total != 3 || pageResp.Page != 2 || len(pageResp.Groups) != 1 {
		t.Fatalf("page %+v", pageResp)
	}
	if pageResp.Groups[0].DisplayValue != "CCC-3" {
		t.Fatalf("expected third group on page 2 of size 2: %+v", pageResp)
	}

	// Out-of-range pages come back empty, not failing.
	blob = mustStatus(t, doJSON(t, c, http.MethodGet, ts.URL+"/v1/duplicates?table=index_card&page=9&page_size=2", nil), 200)
	decode(t, blob, &pageResp)
	if len(pageResp.Groups) != 0 || pageResp.Total != 3 {
		t.Fatalf("page %+v", pageResp)
	}
}
