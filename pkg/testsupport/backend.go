package testsupport

import (
	_ "embed"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// Credentials the fake backend accepts on /manager/login.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "secret"
	AdminToken    = "test-token"
)

//go:embed testdata/seed.json
var seedJSON []byte

type record = map[string]any

type seed struct {
	Bookings  []record `json:"bookings"`
	Customers []record `json:"customers"`
	Workers   []record `json:"workers"`
	Services  []record `json:"services"`
	Managers  []record `json:"managers"`
	States    []record `json:"states"`
	Messages  []record `json:"messages"`
}

// Backend is an in-process fake of the admin REST API. Routes are named
// after the operation that calls them so tests can count calls per
// operation.
type Backend struct {
	server *httptest.Server

	mu          sync.Mutex
	data        seed
	calls       map[string]int
	failures    map[string]int
	holds       map[string]chan struct{}
	requireAuth bool
	requestIDs  []string
}

// NewBackend starts a fake backend seeded from testdata/seed.json. It is
// closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		holds:    make(map[string]chan struct{}),
	}
	if err := json.Unmarshal(seedJSON, &b.data); err != nil {
		t.Fatalf("failed to decode backend seed: %v", err)
	}

	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the base URL to point an executor at.
func (b *Backend) URL() string { return b.server.URL }

// Close stops the server; later requests fail at the network level.
func (b *Backend) Close() { b.server.Close() }

// RequireAuth makes every route except login answer 401 without the
// bearer token handed out by login.
func (b *Backend) RequireAuth() {
	b.mu.Lock()
	b.requireAuth = true
	b.mu.Unlock()
}

// Calls returns how many requests reached the named route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// FailNext makes the next request to route answer with status.
func (b *Backend) FailNext(route string, status int) {
	b.mu.Lock()
	b.failures[route] = status
	b.mu.Unlock()
}

// Hold blocks requests to route until the returned release is called.
func (b *Backend) Hold(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[route] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, route)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// RequestIDs returns the X-Request-ID headers seen so far.
func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requestIDs...)
}

// Bookings returns the number of bookings currently stored.
func (b *Backend) Bookings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data.Bookings)
}

func (b *Backend) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(b.middleware)

	r.HandleFunc("/manager/login", b.login).Methods(http.MethodPost).Name("login")
	r.HandleFunc("/logout", b.message("Logged out successfully")).Methods(http.MethodPost).Name("logout")

	r.HandleFunc("/booking/get-all-bookings", b.listBookings).Methods(http.MethodGet).Name("getAllBookings")
	r.HandleFunc("/booking/delete-booking/{id}", b.remove(func(s *seed) *[]record { return &s.Bookings })).
		Methods(http.MethodDelete).Name("deleteBooking")

	r.HandleFunc("/customer/get-all-customers", b.list(func(s *seed) []record { return s.Customers })).
		Methods(http.MethodGet).Name("getAllUsers")
	r.HandleFunc("/customer-or-worker/update-block-unblock/{id}", b.toggleBlock(func(s *seed) []record {
		return append(append([]record(nil), s.Customers...), s.Workers...)
	})).Methods(http.MethodPatch).Name("toggleBlockUnblock")
	r.HandleFunc("/worker/get-all-worker", b.list(func(s *seed) []record { return s.Workers })).
		Methods(http.MethodGet).Name("getAllWorkers")

	r.HandleFunc("/service/get-all-services", b.list(func(s *seed) []record { return s.Services })).
		Methods(http.MethodGet).Name("getAllServices")
	r.HandleFunc("/service/get-one-service/{id}", b.getOne(func(s *seed) []record { return s.Services })).
		Methods(http.MethodGet).Name("getServiceById")
	r.HandleFunc("/service/update-service/{id}", b.update(func(s *seed) []record { return s.Services })).
		Methods(http.MethodPatch).Name("updateService")
	r.HandleFunc("/service/delete-service/{id}", b.remove(func(s *seed) *[]record { return &s.Services })).
		Methods(http.MethodDelete).Name("deleteService")

	r.HandleFunc("/state/get-all-state", b.list(func(s *seed) []record { return s.States })).
		Methods(http.MethodGet).Name("getAllState")
	r.HandleFunc("/state/update-state/{id}", b.update(func(s *seed) []record { return s.States })).
		Methods(http.MethodPatch).Name("activeState")

	r.HandleFunc("/manager/get-all-managers", b.listManagers).Methods(http.MethodGet).Name("getAllManagers")
	r.HandleFunc("/manager/block-unblock/{id}", b.toggleBlock(func(s *seed) []record { return s.Managers })).
		Methods(http.MethodPatch).Name("blockManager")

	r.HandleFunc("/public/get-contact-us", b.list(func(s *seed) []record { return s.Messages })).
		Methods(http.MethodGet).Name("getAllMessages")
	r.HandleFunc("/public/delete-contact-us/{id}", b.remove(func(s *seed) *[]record { return &s.Messages })).
		Methods(http.MethodDelete).Name("deleteContactUs")

	r.HandleFunc("/admin/getTotalStatus", b.totals).Methods(http.MethodGet).Name("getDashboardStatus")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, record{"message": "Route not found"})
	})
	return r
}

func (b *Backend) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		b.mu.Lock()
		b.calls[name]++
		b.requestIDs = append(b.requestIDs, r.Header.Get("X-Request-ID"))
		status, fail := b.failures[name]
		delete(b.failures, name)
		hold := b.holds[name]
		authOK := !b.requireAuth || name == "login" ||
			r.Header.Get("Authorization") == "Bearer "+AdminToken
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if !authOK {
			writeJSON(w, http.StatusUnauthorized, record{"message": "You are not authorized"})
			return
		}
		if fail {
			writeJSON(w, status, record{"message": http.StatusText(status), "error": name})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, record{"message": "Invalid body"})
		return
	}
	if creds.Email != AdminEmail || creds.Password != AdminPassword {
		writeJSON(w, http.StatusUnauthorized, record{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, record{
		"message": "Login successful",
		"data":    record{"token": AdminToken},
	})
}

func (b *Backend) message(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, record{"message": msg})
	}
}

func (b *Backend) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")

	b.mu.Lock()
	var items []record
	for _, booking := range b.data.Bookings {
		if status == "" || booking["status"] == status {
			items = append(items, maps.Clone(booking))
		}
	}
	b.mu.Unlock()

	page, limit := atoiDefault(q.Get("page"), 1), atoiDefault(q.Get("limit"), 10)
	writePage(w, items, page, limit)
}

func (b *Backend) listManagers(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))

	b.mu.Lock()
	var items []record
	for _, m := range b.data.Managers {
		name, _ := m["fullName"].(string)
		if search == "" || strings.Contains(strings.ToLower(name), search) {
			items = append(items, maps.Clone(m))
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, record{"data": cloneAll(items)})
}

func (b *Backend) list(coll func(*seed) []record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		items := cloneAll(coll(&b.data))
		b.mu.Unlock()

		q := r.URL.Query()
		if q.Has("page") || q.Has("limit") {
			writePage(w, items, atoiDefault(q.Get("page"), 1), atoiDefault(q.Get("limit"), 10))
			return
		}
		writeJSON(w, http.StatusOK, record{"data": items})
	}
}

func (b *Backend) getOne(coll func(*seed) []record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, item := range coll(&b.data) {
			if item["_id"] == id {
				writeJSON(w, http.StatusOK, record{"data": maps.Clone(item)})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, record{"message": "Not found"})
	}
}

func (b *Backend) update(coll func(*seed) []record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var patch record
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, record{"message": "Invalid body"})
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		for _, item := range coll(&b.data) {
			if item["_id"] == id {
				for k, v := range patch {
					if k != "_id" {
						item[k] = v
					}
				}
				writeJSON(w, http.StatusOK, record{"message": "Updated", "data": item})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, record{"message": "Not found"})
	}
}

func (b *Backend) remove(coll func(*seed) *[]record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		b.mu.Lock()
		defer b.mu.Unlock()
		items := coll(&b.data)
		for i, item := range *items {
			if item["_id"] == id {
				*items = append((*items)[:i], (*items)[i+1:]...)
				writeJSON(w, http.StatusOK, record{"message": "Deleted"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, record{"message": "Not found"})
	}
}

func (b *Backend) toggleBlock(coll func(*seed) []record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, item := range coll(&b.data) {
			if item["_id"] == id {
				blocked, _ := item["isBlocked"].(bool)
				item["isBlocked"] = !blocked
				writeJSON(w, http.StatusOK, record{"message": "Updated", "data": item})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, record{"message": "Not found"})
	}
}

func (b *Backend) totals(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	attrs := record{
		"totalUsers":    len(b.data.Customers),
		"totalWorkers":  len(b.data.Workers),
		"totalBookings": len(b.data.Bookings),
		"totalIncome":   income(b.data.Bookings),
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, record{"data": record{"attributes": attrs}})
}

func income(bookings []record) float64 {
	var sum float64
	for _, b := range bookings {
		if p, ok := b["price"].(float64); ok {
			sum += p
		}
	}
	return sum
}

func writePage(w http.ResponseWriter, items []record, page, limit int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, record{
		"data": append([]record{}, items[start:end]...),
		"pagination": record{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + limit - 1) / limit,
		},
	})
}

// cloneAll copies records so they can be encoded after the lock is released.
func cloneAll(items []record) []record {
	out := make([]record, 0, len(items))
	for _, item := range items {
		out = append(out, maps.Clone(item))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
