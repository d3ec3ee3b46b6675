package metric

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTokenRequest(t *testing.T) {
	r := NewRegistry()

	r.ObserveTokenRequest(PhaseMQTT, time.Now(), nil)
	r.ObserveTokenRequest(PhaseMQTT, time.Now(), errors.New("boom"))
	r.ObserveTokenRequest(PhaseMQTT, time.Now(), nil)

	if got := testutil.ToFloat64(r.TokenRequests.WithLabelValues(PhaseMQTT, "ok")); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.TokenRequests.WithLabelValues(PhaseMQTT, "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestRegistry_Gather(t *testing.T) {
	r := NewRegistry()
	r.TokensAcquired.Set(3)
	r.MQTTMessages.WithLabelValues("published").Inc()

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"dsh_mqtt_tokens_acquired", "dsh_mqtt_messages_total"} {
		if !names[want] {
			t.Errorf("missing metric family %s", want)
		}
	}
}

func TestRegistry_Push(t *testing.T) {
	var hits atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		path.Store(req.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRegistry()
	r.TokensAcquired.Set(1)
	if err := r.Push(context.Background(), srv.URL, "dsh", "01HRUN"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("pushgateway hits = %d, want 1", hits.Load())
	}
	p, _ := path.Load().(string)
	if !strings.Contains(p, "/job/dsh") || !strings.Contains(p, "run_id/01HRUN") {
		t.Errorf("push path = %q", p)
	}
}
