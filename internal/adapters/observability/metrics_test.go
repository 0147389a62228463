package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTPIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/v1/rooms/{id}/quote", "GET", "200"))
	ObserveHTTP("/v1/rooms/{id}/quote", "GET", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("/v1/rooms/{id}/quote", "GET", "200"))
	if after != before+1 {
		t.Fatalf("expected counter +1, got before=%v after=%v", before, after)
	}
}

func TestObserveGroupMutation(t *testing.T) {
	before := testutil.ToFloat64(GroupMutations.WithLabelValues("room_removed", "ok"))
	ObserveGroupMutation("room_removed", "ok")
	after := testutil.ToFloat64(GroupMutations.WithLabelValues("room_removed", "ok"))
	if after != before+1 {
		t.Fatalf("expected counter +1, got before=%v after=%v", before, after)
	}
}

func TestRegistryRegistersAllCollectors(t *testing.T) {
	reg := InitRegistry()
	ObserveMissingRateNights(2)
	ObserveLock("acquired")
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("gather: n=%d err=%v", n, err)
	}
}
