package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()
	require.NotNil(t, m)

	m.CounterNotesCreated.Inc()
	m.CounterNotesCreated.Inc()
	m.GaugeNotes.Set(2)
	m.CounterBotReplies.With(prometheus.Labels{"command": "start", "status": "ok"}).Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterNotesCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GaugeNotes))

	count, err := testutil.GatherAndCount(reg,
		"notes_test_server_notes_created",
		"notes_test_server_notes",
		"notes_test_server_bot_replies",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNewManager_SeparateRegistries(t *testing.T) {
	// same names on different registries must not collide
	assert.NotPanics(t, func() {
		NewTestManager()
		NewTestManager()
	})
}

func TestSetupPrometheus(t *testing.T) {
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_collector_total"})
	reg := SetupPrometheus(extra, nil)
	extra.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["extra_collector_total"])
	assert.True(t, names["go_goroutines"])
}
