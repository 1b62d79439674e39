package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quantviz/config"
	"quantviz/pkg/storage/barstore"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const barsBody = `{"bars":{"AAPL":[
	{"t":"2024-01-02T05:00:00Z","o":187.15,"h":188.44,"l":183.89,"c":185.64,"v":82488674,"n":1009074,"vw":185.95},
	{"t":"2024-01-03T05:00:00Z","o":184.22,"h":185.88,"l":183.43,"c":184.25,"v":58414460,"n":656956,"vw":184.32}
]},"next_page_token":null}`

// writeConfig points the commands at a temp sqlite file and the given Alpaca URL.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()

	secretsFile := filepath.Join(dir, "secrets.json")
	require.NoError(t, os.WriteFile(secretsFile, []byte(`{"API_KEY":"key","API_SECRET":"secret"}`), 0o600))

	yaml := fmt.Sprintf(`
alpaca:
  rest:
    base_url: %s
    timeout: 5s
secrets:
  source: file
  file: %s
log:
  level: error
  output_file: ""
storage:
  driver: sqlite
  path: %s
ingest:
  symbols: [AAPL]
  lookback_days: 30
`, baseURL, secretsFile, filepath.Join(dir, "stocks.db"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	prev := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = prev })
	return path
}

func storeFor(t *testing.T, path string) *barstore.Store {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	store, err := barstore.Open(cfg.Storage, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// go test -v --run TestFetchThenExport
func TestFetchThenExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(barsBody))
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	ctx := context.Background()

	require.Equal(t, subcommands.ExitSuccess, (&fetchCmd{}).Execute(ctx, nil))
	require.Equal(t, subcommands.ExitSuccess, (&fetchCmd{days: 5}).Execute(ctx, nil))

	n, err := storeFor(t, path).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "second fetch must not duplicate rows")

	out := filepath.Join(t.TempDir(), "bars.csv")
	require.Equal(t, subcommands.ExitSuccess, (&exportCmd{format: "csv", out: out}).Execute(ctx, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "AAPL,"))
}

// go test -v --run TestFetchUnauthorizedFails
func TestFetchUnauthorizedFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	}))
	defer srv.Close()

	writeConfig(t, srv.URL)
	assert.Equal(t, subcommands.ExitFailure, (&fetchCmd{}).Execute(context.Background(), nil))
}

// go test -v --run TestMigrateAndChart
func TestMigrateAndChart(t *testing.T) {
	writeConfig(t, "http://127.0.0.1:1")
	ctx := context.Background()

	assert.Equal(t, subcommands.ExitSuccess, (&migrateCmd{}).Execute(ctx, nil))

	// empty store: nothing to chart
	out := filepath.Join(t.TempDir(), "bars.xlsx")
	assert.Equal(t, subcommands.ExitFailure, (&chartCmd{out: out}).Execute(ctx, nil))
}

// go test -v --run TestExportRejectsUnknownFormat
func TestExportRejectsUnknownFormat(t *testing.T) {
	writeConfig(t, "http://127.0.0.1:1")
	assert.Equal(t, subcommands.ExitUsageError, (&exportCmd{format: "xml"}).Execute(context.Background(), nil))
}

// go test -v --run TestStreamRefusesDailyTimeframe
func TestStreamRefusesDailyTimeframe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("stream must not reach the network with a daily timeframe")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "1Day", cfg.Ingest.Timeframe)

	assert.Equal(t, subcommands.ExitFailure, (&streamCmd{}).Execute(context.Background(), nil))

	n, err := storeFor(t, path).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
