package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	server := NewServer(":0", reg)

	require.NotNil(t, server)
	require.Equal(t, ":0", server.Addr())
}

func httpGet(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.RecordRPCCall("eth_getLogs", nil, 0.02)
	m.UpdateLedgerMetrics(3, 7, 1500)

	server := NewServer("127.0.0.1:19191", reg)
	errCh := server.Start()

	// Give server time to start
	time.Sleep(50 * time.Millisecond)

	resp, err := httpGet(t.Context(), "http://127.0.0.1:19191/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp, err = httpGet(t.Context(), "http://127.0.0.1:19191/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "tokenledger_rpc_calls_total")
	require.Contains(t, string(body), "tokenledger_ledger_owners 3")

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			require.NoError(t, err)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
