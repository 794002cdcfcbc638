package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("armctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordStateSend(0x02, true)
	AddLinkSessions(1)
	AddLinkSessions(-1)
}

func TestRecordFrameCountsByFamilyAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(framesTotal.WithLabelValues("servo", "handled"))
	RecordFrame("servo", "handled")
	RecordFrame("servo", "handled")
	RecordFrame("servo", "rejected")
	after := testutil.ToFloat64(framesTotal.WithLabelValues("servo", "handled"))
	if after-before != 2 {
		t.Fatalf("expected 2 handled frames recorded, got %v", after-before)
	}
}

func TestSetCycleSlotsInUse(t *testing.T) {
	SetCycleSlotsInUse(3)
	if got := testutil.ToFloat64(cycleSlotsInUse); got != 3 {
		t.Fatalf("slots gauge got=%v want=3", got)
	}
	SetCycleSlotsInUse(0)
	if got := testutil.ToFloat64(cycleSlotsInUse); got != 0 {
		t.Fatalf("slots gauge got=%v want=0", got)
	}
}
