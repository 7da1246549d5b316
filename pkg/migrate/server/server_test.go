package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowferry/snowferry/pkg/migrate"
	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

func newTestServer(t *testing.T) (*httptest.Server, *connection.MockProvider) {
	t.Helper()
	mock := connection.NewMockProvider()
	srv := New(mock, nil, zerolog.Nop())
	ts := httptest.NewServer(NewRouter(srv))
	t.Cleanup(ts.Close)
	return ts, mock
}

func jobBody(t *testing.T, batch, conc int, tables ...string) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(config.Config{
		MaxConcurrency:  conc,
		BatchRecordSize: batch,
		TableList:       tables,
		Source:          config.Endpoint{Driver: "mock", Host: "src"},
		Target:          config.Endpoint{Driver: "mock", Host: "dst"},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func submitJob(t *testing.T, ts *httptest.Server, body *bytes.Buffer) jobResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var jr jobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jr))
	require.NotEmpty(t, jr.RunID)
	return jr
}

func getJob(t *testing.T, ts *httptest.Server, id string) jobResponse {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/jobs/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var jr jobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jr))
	return jr
}

func waitForDone(t *testing.T, ts *httptest.Server, id string) *migrate.Report {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		jr := getJob(t, ts, id)
		if jr.Report.Done() {
			return jr.Report
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return nil
}

func TestSubmitAndPollJob(t *testing.T) {
	ts, mock := newTestServer(t)
	mock.SeedRowCount("users", 25)
	mock.SeedRowCount("orders", 40)

	jr := submitJob(t, ts, jobBody(t, 10, 2, "users", "orders"))
	rep := waitForDone(t, ts, jr.RunID)

	assert.Equal(t, migrate.StatusSucceeded, rep.Overall)
	assert.Equal(t, int64(65), rep.RowsMigrated)
	assert.Len(t, mock.TargetRows("users"), 25)
	assert.Len(t, mock.TargetRows("orders"), 40)
}

func TestSubmitInvalidConfigIsRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/jobs", "application/json",
		jobBody(t, 0, 2)) // no tables, zero batch size
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "invalid job config")
}

func TestSubmitMalformedBodyIsRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"max_concurrency": `))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownJobIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/jobs/no-such-run")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/jobs/no-such-run/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListJobsOldestFirst(t *testing.T) {
	ts, mock := newTestServer(t)
	mock.SeedRowCount("t", 5)

	first := submitJob(t, ts, jobBody(t, 10, 1, "t"))
	second := submitJob(t, ts, jobBody(t, 10, 1, "t"))
	waitForDone(t, ts, first.RunID)
	waitForDone(t, ts, second.RunID)

	resp, err := http.Get(ts.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []jobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 2)
	assert.Equal(t, first.RunID, out[0].RunID)
	assert.Equal(t, second.RunID, out[1].RunID)
}

func TestCancelJob(t *testing.T) {
	ts, mock := newTestServer(t)
	mock.SeedRowCount("big", 100000)
	// slow the run down so the cancel lands mid flight
	mock.InsertHook = func(string, int) { time.Sleep(5 * time.Millisecond) }

	jr := submitJob(t, ts, jobBody(t, 10, 1, "big"))

	// wait until the run has made some progress
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if getJob(t, ts, jr.RunID).Report.RowsMigrated > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/api/jobs/"+jr.RunID+"/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	rep := waitForDone(t, ts, jr.RunID)
	assert.Equal(t, migrate.StatusCancelled, rep.Overall)
	assert.Greater(t, rep.RowsMigrated, int64(0))
	assert.Less(t, rep.RowsMigrated, int64(100000))
}

func TestStreamJobProgress(t *testing.T) {
	ts, mock := newTestServer(t)
	mock.SeedRowCount("t", 30)

	jr := submitJob(t, ts, jobBody(t, 10, 1, "t"))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/jobs/" + jr.RunID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var last jobResponse
	for {
		var msg jobResponse
		if err := conn.ReadJSON(&msg); err != nil {
			// normal closure once the run is terminal
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		last = msg
	}
	require.NotNil(t, last.Report)
	assert.Equal(t, migrate.StatusSucceeded, last.Report.Overall)
	assert.Equal(t, int64(30), last.Report.RowsMigrated)
}
