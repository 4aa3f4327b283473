package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveChatJob(t *testing.T) {
	before := testutil.ToFloat64(chatJobsProcessedTotal.WithLabelValues("completed"))
	ObserveChatJob("Completed", 2*time.Second)
	after := testutil.ToFloat64(chatJobsProcessedTotal.WithLabelValues("completed"))
	if after != before+1 {
		t.Errorf("completed counter = %v, want %v", after, before+1)
	}
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth("redis", 7)
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("redis")); got != 7 {
		t.Errorf("queue depth = %v", got)
	}
}

func TestMustRegister_Idempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
