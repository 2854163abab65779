package onion_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/onion"
)

// ---------------------------------------------------------------------------
// Registry tracks functions built with WithRegistry
// ---------------------------------------------------------------------------

func TestNewRegistryEmpty(t *testing.T) {
	reg := onion.NewRegistry()

	if snap := reg.Snapshot(); len(snap.Functions) != 0 {
		t.Fatalf("Functions = %d, want 0", len(snap.Functions))
	}

	if _, ok := reg.Status("missing"); ok {
		t.Fatal("Status(missing) ok = true, want false")
	}
}

func TestRegistryCountsInvocations(t *testing.T) {
	reg := onion.NewRegistry()

	ok := onion.MustNew("ok", echo, onion.WithRegistry(reg))
	bad := onion.MustNewArgs("bad",
		func(context.Context, onion.ArgsRequest) (int, error) { return 0, errors.New("x") },
		onion.WithRegistry(reg), quiet(),
	)
	_ = onion.MustNew("unregistered", echo)

	for range 3 {
		_, _ = ok.Call(context.Background(), "x")
	}

	_, _ = bad.Call(context.Background())

	snap := reg.Snapshot()
	if len(snap.Functions) != 2 {
		t.Fatalf("Functions = %d, want 2", len(snap.Functions))
	}

	if snap.Functions[0].Name != "ok" || snap.Functions[1].Name != "bad" {
		t.Fatalf("names = %q, %q; want registration order", snap.Functions[0].Name, snap.Functions[1].Name)
	}

	st, found := reg.Status("ok")
	if !found || st.Invocations != 3 || st.Succeeded != 3 || st.LastInvoked.IsZero() {
		t.Fatalf("Status(ok) = %+v, want 3 successful invocations", st)
	}

	st, _ = reg.Status("bad")
	if st.Failed != 1 || st.Rethrown != 1 {
		t.Fatalf("Status(bad) = %+v, want 1 rethrown failure", st)
	}
}

func TestRegistryConcurrentRegister(t *testing.T) {
	reg := onion.NewRegistry()

	const goroutines = 20

	var wg sync.WaitGroup

	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()

			_ = onion.MustNew("f", echo, onion.WithRegistry(reg))
			_ = reg.Snapshot()
		}()
	}

	wg.Wait()

	if n := len(reg.Snapshot().Functions); n != goroutines {
		t.Fatalf("Functions = %d, want %d", n, goroutines)
	}
}

// ---------------------------------------------------------------------------
// StatsHandler
// ---------------------------------------------------------------------------

func TestStatsHandler(t *testing.T) {
	reg := onion.NewRegistry()
	f := onion.MustNew("served", echo, onion.WithRegistry(reg))

	_, _ = f.Call(context.Background(), "x")

	rec := httptest.NewRecorder()
	onion.StatsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var snap onion.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(snap.Functions) != 1 || snap.Functions[0].Name != "served" || snap.Functions[0].Succeeded != 1 {
		t.Fatalf("snapshot = %+v, want one served function with 1 success", snap)
	}
}
