package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(limit, window)
	l.now = clock.Now
	return l, clock
}

func TestAdmitSequence(t *testing.T) {
	l, clock := newTestLimiter(3, 60*time.Second)

	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, l.Admit("client-a"))
		clock.Advance(time.Second)
	}

	want := []bool{true, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Admit sequence = %v, want %v", got, want)
		}
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, 10*time.Second)

	if !l.Admit("a") || !l.Admit("a") {
		t.Fatal("first two requests should be admitted")
	}
	if l.Admit("a") {
		t.Fatal("third request inside the window should be rejected")
	}

	clock.Advance(9 * time.Second)
	if l.Admit("a") {
		t.Fatal("still inside the window")
	}

	clock.Advance(1 * time.Second)
	if !l.Admit("a") {
		t.Fatal("expected admission once the oldest timestamp left the window")
	}
}

func TestRejectionsAreNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(1, 10*time.Second)

	l.Admit("a")
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		l.Admit("a")
	}
	clock.Advance(5 * time.Second)

	if !l.Admit("a") {
		t.Error("rejected requests extended the window")
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if !l.Admit("a") {
		t.Fatal("a should be admitted")
	}
	if !l.Admit("b") {
		t.Fatal("b should be admitted independently of a")
	}
	if l.Admit("a") {
		t.Fatal("a should be limited")
	}
}

func TestRetryAfter(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	if d := l.RetryAfter("a"); d != 0 {
		t.Errorf("RetryAfter before any request = %v", d)
	}
	l.Admit("a")
	clock.Advance(20 * time.Second)
	if d := l.RetryAfter("a"); d != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", d)
	}
}

func TestPruneDropsIdleIdentities(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)
	l.Admit("a")
	clock.Advance(2 * time.Second)
	l.Admit("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.windows["a"]; ok {
		t.Error("expired identity was not pruned")
	}
}

func TestConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	l := New(50, time.Minute)

	var mu sync.Mutex
	admitted := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Errorf("admitted %d, want 50", admitted)
	}
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute)

	e := echo.New()
	e.Use(Middleware(l, "/health"))
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/api/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("/api/x"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}

	rec := do("/api/x")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	for i := 0; i < 5; i++ {
		if rec := do("/health"); rec.Code != http.StatusOK {
			t.Fatalf("health request %d limited: %d", i, rec.Code)
		}
	}
}
