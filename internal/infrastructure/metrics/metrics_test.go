package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordLinkVerify(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.LinkVerifyTotal.WithLabelValues("invalid_code"))

	DefaultMetrics.RecordLinkVerify("invalid_code")

	after := testutil.ToFloat64(DefaultMetrics.LinkVerifyTotal.WithLabelValues("invalid_code"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestMetrics_SetPendingLinks(t *testing.T) {
	DefaultMetrics.SetPendingLinks(3)

	if got := testutil.ToFloat64(DefaultMetrics.PendingLinks); got != 3 {
		t.Errorf("pending links gauge = %v, want 3", got)
	}
}

func TestMetrics_RecordPendingEviction_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.PendingEvictions.WithLabelValues("expired"))

	DefaultMetrics.RecordPendingEviction("expired", 0)
	DefaultMetrics.RecordPendingEviction("expired", 2)

	after := testutil.ToFloat64(DefaultMetrics.PendingEvictions.WithLabelValues("expired"))
	if after-before != 2 {
		t.Errorf("expected evictions to grow by 2, got %v", after-before)
	}
}

func TestMetrics_RecordRemoteCall(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RemoteCallErrors.WithLabelValues("messages.getDialogs"))

	DefaultMetrics.RecordRemoteCall("messages.getDialogs", 0.2, nil)
	DefaultMetrics.RecordRemoteCall("messages.getDialogs", 0.4, errors.New("FLOOD_WAIT"))

	after := testutil.ToFloat64(DefaultMetrics.RemoteCallErrors.WithLabelValues("messages.getDialogs"))
	if after-before != 1 {
		t.Errorf("expected one recorded error, got %v", after-before)
	}
}

func TestMetrics_RecordKafkaError(t *testing.T) {
	// empty event type falls back to "unknown"
	DefaultMetrics.RecordKafkaError("")
	if got := testutil.ToFloat64(DefaultMetrics.KafkaProduceErrors.WithLabelValues("unknown")); got < 1 {
		t.Errorf("expected unknown label to be recorded, got %v", got)
	}
}

func TestGetDefaultMetrics_Singleton(t *testing.T) {
	if GetDefaultMetrics() != GetDefaultMetrics() {
		t.Error("GetDefaultMetrics should return the same instance")
	}
}
