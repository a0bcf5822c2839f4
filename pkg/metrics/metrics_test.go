package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploymentsCounter(t *testing.T) {
	before := testutil.ToFloat64(DeploymentsTotal.WithLabelValues("deploy", "create", "success"))
	DeploymentsTotal.WithLabelValues("deploy", "create", "success").Inc()
	after := testutil.ToFloat64(DeploymentsTotal.WithLabelValues("deploy", "create", "success"))

	assert.Equal(t, before+1, after)
}

// TestWriteTextfile tests that the registry is exported in text format
func TestWriteTextfile(t *testing.T) {
	RemoteRequestsTotal.WithLabelValues("stacks", "200").Inc()

	path := filepath.Join(t.TempDir(), "corral.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "corral_remote_requests_total")
	assert.Contains(t, string(data), `operation="stacks"`)
}
