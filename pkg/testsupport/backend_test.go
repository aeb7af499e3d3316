package testsupport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func do(t *testing.T, b *Backend, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, b.URL()+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Request-ID", "req-"+method)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer res.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return res.StatusCode, out
}

func TestBackend_Routes(t *testing.T) {
	b := NewBackend(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		route      string
		wantStatus int
	}{
		{"login", http.MethodPost, "/manager/login", map[string]string{"email": AdminEmail, "password": AdminPassword}, "login", http.StatusOK},
		{"bad login", http.MethodPost, "/manager/login", map[string]string{"email": AdminEmail, "password": "nope"}, "login", http.StatusUnauthorized},
		{"bookings", http.MethodGet, "/booking/get-all-bookings?page=1&limit=2&status=", nil, "getAllBookings", http.StatusOK},
		{"service", http.MethodGet, "/service/get-one-service/s1", nil, "getServiceById", http.StatusOK},
		{"missing service", http.MethodGet, "/service/get-one-service/nope", nil, "getServiceById", http.StatusNotFound},
		{"totals", http.MethodGet, "/admin/getTotalStatus", nil, "getDashboardStatus", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", nil, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := b.Calls(tt.route)
			status, _ := do(t, b, tt.method, tt.path, tt.body, "")
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if tt.route != "" && b.Calls(tt.route) != before+1 {
				t.Errorf("expected call counted for %s", tt.route)
			}
		})
	}
}

func TestBackend_Pagination(t *testing.T) {
	b := NewBackend(t)

	_, body := do(t, b, http.MethodGet, "/booking/get-all-bookings?page=2&limit=2&status=", nil, "")
	items := body["data"].([]any)
	if len(items) != 1 {
		t.Errorf("expected 1 booking on page 2, got %d", len(items))
	}
	pg := body["pagination"].(map[string]any)
	if pg["total"] != float64(3) || pg["totalPages"] != float64(2) {
		t.Errorf("unexpected pagination %v", pg)
	}

	_, body = do(t, b, http.MethodGet, "/booking/get-all-bookings?page=1&limit=10&status=booked", nil, "")
	if got := len(body["data"].([]any)); got != 2 {
		t.Errorf("expected 2 booked bookings, got %d", got)
	}
}

func TestBackend_Mutations(t *testing.T) {
	b := NewBackend(t)

	if status, _ := do(t, b, http.MethodDelete, "/booking/delete-booking/id123", nil, ""); status != http.StatusOK {
		t.Fatalf("delete failed with %d", status)
	}
	if b.Bookings() != 2 {
		t.Errorf("expected 2 bookings left, got %d", b.Bookings())
	}
	if status, _ := do(t, b, http.MethodDelete, "/booking/delete-booking/id123", nil, ""); status != http.StatusNotFound {
		t.Errorf("second delete should be 404, got %d", status)
	}

	_, body := do(t, b, http.MethodPatch, "/manager/block-unblock/m1", nil, "")
	if body["data"].(map[string]any)["isBlocked"] != true {
		t.Errorf("expected manager blocked, got %v", body["data"])
	}

	_, body = do(t, b, http.MethodPatch, "/service/update-service/s2", map[string]any{"price": 95}, "")
	if body["data"].(map[string]any)["price"] != float64(95) {
		t.Errorf("expected updated price, got %v", body["data"])
	}
}

func TestBackend_FailNextAndAuth(t *testing.T) {
	b := NewBackend(t)

	b.FailNext("getAllWorkers", http.StatusInternalServerError)
	if status, body := do(t, b, http.MethodGet, "/worker/get-all-worker", nil, ""); status != http.StatusInternalServerError || body["error"] != "getAllWorkers" {
		t.Errorf("expected injected failure, got %d %v", status, body)
	}
	if status, _ := do(t, b, http.MethodGet, "/worker/get-all-worker", nil, ""); status != http.StatusOK {
		t.Errorf("failure must only apply once, got %d", status)
	}

	b.RequireAuth()
	if status, _ := do(t, b, http.MethodGet, "/worker/get-all-worker", nil, ""); status != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", status)
	}
	if status, _ := do(t, b, http.MethodGet, "/worker/get-all-worker", nil, AdminToken); status != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", status)
	}

	ids := b.RequestIDs()
	if len(ids) != 4 || ids[0] != "req-GET" {
		t.Errorf("unexpected request ids %v", ids)
	}
}

func TestBackend_Hold(t *testing.T) {
	b := NewBackend(t)
	release := b.Hold("getAllState")

	done := make(chan int, 1)
	go func() {
		res, err := http.Get(b.URL() + "/state/get-all-state")
		if err != nil {
			done <- 0
			return
		}
		res.Body.Close()
		done <- res.StatusCode
	}()

	select {
	case <-done:
		t.Fatal("request finished while held")
	default:
	}

	release()
	if status := <-done; status != http.StatusOK {
		t.Errorf("expected 200 after release, got %d", status)
	}
	release()
}
