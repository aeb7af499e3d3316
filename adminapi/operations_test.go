package adminapi

import (
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/endpoint"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}

	if got, want := len(reg.Names()), len(Operations()); got != want {
		t.Errorf("expected %d operations registered, got %d", want, got)
	}
	if got := reg.TagTypes(); len(got) != len(TagTypes()) {
		t.Errorf("expected %d tag types, got %v", len(TagTypes()), got)
	}

	providers := reg.Providers(TagBookings)
	for _, want := range []string{OpGetAllBookings, OpGetUpcomingBookings, OpGetBookingsTrends} {
		found := false
		for _, p := range providers {
			if p == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s to provide %s, got %v", want, TagBookings, providers)
		}
	}
}

func TestOperations_Kinds(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kind endpoint.Kind
	}{
		{OpLogin, endpoint.KindMutation},
		{OpLogout, endpoint.KindMutation},
		{OpGetAllBookings, endpoint.KindQuery},
		{OpDeleteBooking, endpoint.KindMutation},
		{OpGetDashboardStatus, endpoint.KindQuery},
		{OpBlockManager, endpoint.KindMutation},
		{OpGetAllManagers, endpoint.KindQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := reg.Get(tt.name)
			if err != nil {
				t.Fatalf("Get(%q) failed: %v", tt.name, err)
			}
			if op.Kind != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, op.Kind)
			}
		})
	}
}

func TestOperations_Requests(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		op     string
		args   any
		method string
		url    string
		body   bool
	}{
		{
			name:   "bookings page",
			op:     OpGetAllBookings,
			args:   BookingFilter{Page: 1, Limit: 10},
			method: http.MethodGet,
			url:    "http://api/booking/get-all-bookings?limit=10&page=1&status=",
		},
		{
			name:   "upcoming bookings ignore args",
			op:     OpGetUpcomingBookings,
			args:   nil,
			method: http.MethodGet,
			url:    "http://api/booking/get-all-bookings?filterType=upcoming&limit=5&page=1&status=booked",
		},
		{
			name:   "income ratio takes a bare year",
			op:     OpGetIncomeRatio,
			args:   2025,
			method: http.MethodGet,
			url:    "http://api/admin/getIncomeRatio?year=2025",
		},
		{
			name:   "delete booking by id",
			op:     OpDeleteBooking,
			args:   "id123",
			method: http.MethodDelete,
			url:    "http://api/booking/delete-booking/id123",
		},
		{
			name:   "update service carries a body",
			op:     OpUpdateService,
			args:   endpoint.Update{ID: "s1", Data: map[string]any{"price": 99}},
			method: http.MethodPatch,
			url:    "http://api/service/update-service/s1",
			body:   true,
		},
		{
			name:   "manager search",
			op:     OpGetAllManagers,
			args:   ManagerSearch{Search: "nadia"},
			method: http.MethodGet,
			url:    "http://api/manager/get-all-managers?search=nadia",
		},
		{
			name:   "login posts credentials",
			op:     OpLogin,
			args:   Credentials{Email: "a@b.c", Password: "x"},
			method: http.MethodPost,
			url:    "http://api/manager/login",
			body:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := reg.Get(tt.op)
			if err != nil {
				t.Fatal(err)
			}
			req, err := op.BuildRequest(tt.args)
			if err != nil {
				t.Fatalf("BuildRequest() failed: %v", err)
			}
			if req.Method != tt.method {
				t.Errorf("expected method %s, got %s", tt.method, req.Method)
			}
			if got := req.URL("http://api"); got != tt.url {
				t.Errorf("expected URL %s, got %s", tt.url, got)
			}
			if req.HasBody() != tt.body {
				t.Errorf("expected body=%v, got %v", tt.body, req.HasBody())
			}
		})
	}
}

func TestOperations_YearQueryRejectsStructs(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	op, _ := reg.Get(OpGetBookingsTrends)

	_, err = op.BuildRequest(Period{Year: 2025})
	if err == nil {
		t.Fatal("expected error for non-scalar year")
	}
	if !goerrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestOperations_ServiceTags(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	byID, _ := reg.Get(OpGetServiceByID)
	if got := byID.ProvidedTags("s1"); !got.Contains(TagServices) || !got.Contains(ServiceTag("s1")) {
		t.Errorf("expected coarse and per-id tags, got %v", got)
	}

	update, _ := reg.Get(OpUpdateService)
	got := update.InvalidatedTags(endpoint.Update{ID: "s2", Data: map[string]any{}})
	if !got.Contains(ServiceTag("s2")) {
		t.Errorf("expected %s invalidated, got %v", ServiceTag("s2"), got)
	}
	for _, tag := range got {
		if tag == ServiceTag("s1") {
			t.Errorf("did not expect %s invalidated, got %v", tag, got)
		}
	}

	if tags := byID.ProvidedTags(""); len(tags) != 1 {
		t.Errorf("empty id must not add a per-id tag, got %v", tags)
	}
}

func TestOperations_UntaggedTotals(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{OpGetDashboardStatus, OpGetIncomeRatio} {
		op, _ := reg.Get(name)
		if tags := op.ProvidedTags(nil); len(tags) != 0 {
			t.Errorf("%s: expected no tags, got %v", name, tags)
		}
	}
}
