package inspect

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinetic/pkg/bridge"
	"github.com/matzehuels/kinetic/pkg/engine"
	"github.com/matzehuels/kinetic/pkg/node"
	"github.com/matzehuels/kinetic/pkg/observability"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine, *observability.Counters) {
	t.Helper()
	logger := log.New(io.Discard)
	e := engine.New(engine.Options{Logger: logger})
	e.Queue().Enqueue(
		bridge.ConfigureProps([]string{"opacity"}, nil),
		bridge.Create(1, node.KindValue, map[string]any{"value": 2.0}),
		bridge.Create(2, node.KindOp, map[string]any{"op": "multiply", "input": []any{1, 1}}),
		bridge.Create(3, node.KindProps, map[string]any{"props": map[string]any{"opacity": 2}}),
		bridge.ConnectToView(3, 7),
	)
	e.Tick(0)
	counters := &observability.Counters{}
	return New(e, Options{Logger: logger, Counters: counters}), e, counters
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestNodeEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"ok"`},
		{"/nodes", http.StatusOK, `"kind": "op"`},
		{"/nodes/2", http.StatusOK, `"value": 4`},
		{"/nodes/99", http.StatusNotFound, "node 99 not found"},
		{"/nodes/abc", http.StatusBadRequest, "invalid node id"},
		{"/graph.dot", http.StatusOK, "n3 -> v7"},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, srv, tt.path)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body)
			}
			if !strings.Contains(rr.Body.String(), tt.body) {
				t.Errorf("body missing %q:\n%s", tt.body, rr.Body)
			}
		})
	}
}

func TestStats(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := get(t, srv, "/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var st Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Nodes != 3 || st.Generation != 1 || st.Graph.Passes != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.Counters == nil {
		t.Error("counters missing")
	}
}

func TestPostCommands(t *testing.T) {
	srv, e, _ := newTestServer(t)

	body := `[{"op":"setValue","node":1,"value":3}]`
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body)))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if e.Queue().Len() != 1 {
		t.Fatalf("queue length = %d, want 1", e.Queue().Len())
	}

	e.Tick(16_000_000)
	n, _ := e.Snapshot().Node(2)
	if got := n.Value.Native(); got != 9.0 {
		t.Errorf("node 2 = %v, want 9", got)
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(`{"op":`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rr.Code)
	}
}

func TestHTTPHooks(t *testing.T) {
	srv, _, counters := newTestServer(t)
	observability.SetHTTPHooks(counters)
	t.Cleanup(observability.Reset)

	get(t, srv, "/health")
	get(t, srv, "/nodes/99")

	// 404 is a client error and is not counted as a server failure.
	v := counters.Values()
	if v.Requests != 2 || v.HTTPErrors != 0 {
		t.Errorf("requests = %d, errors = %d; want 2, 0", v.Requests, v.HTTPErrors)
	}
}

func TestListenAndServe(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	addrc := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrc <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrc:
	case err := <-done:
		t.Fatalf("ListenAndServe: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not open")
	}

	resp, err := http.Get("http://" + addr.String() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
