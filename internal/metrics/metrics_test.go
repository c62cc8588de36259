package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	before := testutil.ToFloat64(WebhookOutcomes.WithLabelValues("duplicate"))
	WebhookOutcomes.WithLabelValues("duplicate").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(WebhookOutcomes.WithLabelValues("duplicate")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "payment_webhook_outcomes_total")

	assert.Panics(t, func() { Register(reg) }, "collectors register once per registry")
}
