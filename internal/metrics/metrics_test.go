package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)

	before := testutil.ToFloat64(AuthEvents.WithLabelValues("login", "success"))
	AuthEvents.WithLabelValues("login", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AuthEvents.WithLabelValues("login", "success")))

	assert.Panics(t, func() { RegisterCollectors(reg) })
}
