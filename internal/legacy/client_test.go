package legacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/folkops/opsboard/internal/grid"
)

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("authorization header = %q", got)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("pageSize") != "50" {
			t.Errorf("pagination params = %q/%q", q.Get("page"), q.Get("pageSize"))
		}
		if q.Get("team") != "MKT1" {
			t.Errorf("team param = %q", q.Get("team"))
		}
		if staff := q["staff"]; len(staff) != 2 || staff[0] != "Lan" || staff[1] != "Minh" {
			t.Errorf("staff params = %v", staff)
		}
		json.NewEncoder(w).Encode(grid.PageResult{
			Rows: []grid.Row{
				{"order_code": "ORD-1", "customer_name": "Nguyễn Văn A"},
			},
			Total:      101,
			Page:       2,
			TotalPages: 3,
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "tok-123")
	page, err := client.FetchPage(context.Background(), grid.Query{
		Page:         2,
		PageSize:     50,
		Team:         "MKT1",
		AllowedStaff: []string{"Lan", "Minh"},
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Total != 101 || len(page.Rows) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if got := page.Rows[0]["order_code"]; got != "ORD-1" {
		t.Errorf("order_code = %v", got)
	}
}

func TestUpdateCell(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	err := client.UpdateCell(context.Background(), "ORD-7", "delivery_status", "Giao Thành Công")
	if err != nil {
		t.Fatalf("UpdateCell: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/orders/ORD-7" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["column"] != "delivery_status" || gotBody["value"] != "Giao Thành Công" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestUpdateBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Rows []grid.RowPatch `json:"rows"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Rows) != 2 {
			t.Errorf("expected 2 row patches, got %d", len(req.Rows))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"summary": map[string]int{"updated": 2},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	result, err := client.UpdateBatch(context.Background(), []grid.RowPatch{
		{Key: "ORD-1", Values: map[string]string{"note": "gọi lại"}},
		{Key: "ORD-2", Values: map[string]string{"note": ""}},
	})
	if err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}
	if result.Updated != 2 {
		t.Errorf("updated = %d, want 2", result.Updated)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "row gone", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	err := client.UpdateCell(context.Background(), "ORD-404", "note", "x")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	statusErr, ok := err.(*ErrStatus)
	if !ok {
		t.Fatalf("expected *ErrStatus, got %T", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("code = %d", statusErr.Code)
	}
}
