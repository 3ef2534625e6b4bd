package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	MergeOutcomes.WithLabelValues("m", "a", "NEW").Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(MergeOutcomes.WithLabelValues("m", "a", "NEW")))

	RuleFirings.WithLabelValues("s").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(RuleFirings.WithLabelValues("s")))
}

func TestObserveStage(t *testing.T) {
	ObserveStage("ok-stage", time.Now(), nil)
	ObserveStage("bad-stage", time.Now(), errors.New("boom"))
	assert.Equal(t, 2, testutil.CollectAndCount(StageDuration))
}
