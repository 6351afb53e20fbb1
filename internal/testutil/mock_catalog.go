// Package testutil provides testing utilities for the harvester.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Product is a catalog entry served by the mock.
type Product struct {
	Name        string
	URLKey      string
	Price       float64
	Description string
	ImageURLs   []string
}

// AlwaysFail makes a failure plan fail every request for the ID.
const AlwaysFail = -1

type failurePlan struct {
	remaining int
	status    int
}

// MockCatalog is a configurable mock of the product detail API for tests.
// It serves /products/<id> and tracks per-ID request counts.
type MockCatalog struct {
	server *httptest.Server

	mu       sync.Mutex
	products map[string]Product
	raw      map[string]rawResponse
	failures map[string]*failurePlan
	requests map[string]int

	// Delay is applied to every response when set.
	Delay time.Duration
}

type rawResponse struct {
	status int
	body   string
}

// NewMockCatalog creates a running mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		products: make(map[string]Product),
		raw:      make(map[string]rawResponse),
		failures: make(map[string]*failurePlan),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URLTemplate returns a template suitable for fetch.Config.URLTemplate.
func (m *MockCatalog) URLTemplate() string {
	return m.server.URL + "/products/%s"
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetProduct configures a product that fetches successfully.
func (m *MockCatalog) SetProduct(id string, p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = p
}

// SetRawResponse makes the given ID return an arbitrary status and body,
// e.g. a malformed payload.
func (m *MockCatalog) SetRawResponse(id string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw[id] = rawResponse{status: status, body: body}
}

// FailWith makes the given ID fail with status for the next times requests
// (AlwaysFail for every request). Once the plan is used up, the configured
// product is served normally.
func (m *MockCatalog) FailWith(id string, times int, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = &failurePlan{remaining: times, status: status}
}

// RequestCount returns how many requests the ID has received.
func (m *MockCatalog) RequestCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

// TotalRequests returns the number of requests across all IDs.
func (m *MockCatalog) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

func (m *MockCatalog) handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/products/")

	m.mu.Lock()
	m.requests[id]++

	if plan, ok := m.failures[id]; ok && plan.remaining != 0 {
		if plan.remaining > 0 {
			plan.remaining--
		}
		status := plan.status
		m.mu.Unlock()

		m.sleep()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": "injected failure"}`)
		return
	}

	if raw, ok := m.raw[id]; ok {
		m.mu.Unlock()

		m.sleep()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(raw.status)
		w.Write([]byte(raw.body))
		return
	}

	p, ok := m.products[id]
	m.mu.Unlock()

	m.sleep()
	if !ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error": "product not found"}`)
		return
	}

	images := make([]map[string]string, 0, len(p.ImageURLs))
	for _, u := range p.ImageURLs {
		images = append(images, map[string]string{"base_url": u})
	}

	payload := map[string]interface{}{
		"name":        p.Name,
		"url_key":     p.URLKey,
		"price":       p.Price,
		"description": p.Description,
		"images":      images,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}

func (m *MockCatalog) sleep() {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
}
