package metrics

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestNew_Defaults(t *testing.T) {
	srv := New(prometheus.NewRegistry())

	if srv.Addr() != "localhost:9090" {
		t.Errorf("addr = %q, want %q", srv.Addr(), "localhost:9090")
	}
	if srv.shutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.shutdownTimeout, 5*time.Second)
	}
	if srv.logger == nil {
		t.Error("logger is nil, want slog.Default()")
	}
}

func TestNew_WithOptions(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	srv := New(prometheus.NewRegistry(),
		WithHost(":9191"),
		WithShutdownTimeout(time.Second),
		WithLogger(logger),
	)

	if srv.Addr() != ":9191" {
		t.Errorf("addr = %q, want %q", srv.Addr(), ":9191")
	}
	if srv.shutdownTimeout != time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.shutdownTimeout, time.Second)
	}
	if srv.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}).Add(3)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	srv := New(reg, WithLogger(slog.New(slog.DiscardHandler)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + Path)
	if err != nil {
		cancel()
		t.Fatalf("scrape: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), "test_total 3") {
		t.Errorf("expected counter in scrape output:\n%s", body)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := New(prometheus.NewRegistry(), WithHost(ln.Addr().String()), WithLogger(slog.New(slog.DiscardHandler)))

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error when the address is already in use")
	}
}
