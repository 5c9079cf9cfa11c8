package metrics

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(OrdersTotal.WithLabelValues("bid", "submitted"))
	OrdersTotal.WithLabelValues("bid", "submitted").Inc()
	if got := testutil.ToFloat64(OrdersTotal.WithLabelValues("bid", "submitted")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}

	SessionRunning.Set(1)
	if got := testutil.ToFloat64(SessionRunning); got != 1 {
		t.Errorf("expected gauge 1, got %v", got)
	}
	SessionRunning.Set(0)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServe_LogsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	var out lockedBuffer
	srv := Serve(ln.Addr().String(), zerolog.New(&out))
	defer srv.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "metrics server failed") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("bind failure not logged: %q", out.String())
}
