package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kerbaras/mdhold/pkg/config"
	"github.com/kerbaras/mdhold/pkg/data"
	"github.com/kerbaras/mdhold/pkg/mangadex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// E2E tests for a whole run against an in-memory MangaDex

type fakeMangaDex struct {
	mu       sync.Mutex
	statuses map[string]string
	follows  map[string]bool
	failOn   string // manga id whose status update answers 500
	requests []time.Time
	refresh  int
}

func newFakeMangaDex(statuses map[string]string) *fakeMangaDex {
	f := &fakeMangaDex{statuses: map[string]string{}, follows: map[string]bool{}}
	for id, s := range statuses {
		f.statuses[id] = s
		f.follows[id] = true
	}
	return f
}

func (f *fakeMangaDex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, time.Now())

	path := r.URL.Path
	switch {
	case path == "/auth/refresh" && r.Method == http.MethodPost:
		f.refresh++
		io.WriteString(w, `{"result":"ok","token":{"session":"session-token"}}`)
		return
	case path == "/auth/login":
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"result":"error","errors":[{"status":401,"title":"Unauthorized"}]}`)
		return
	}

	if r.Header.Get("Authorization") != "Bearer session-token" {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"result":"error","errors":[{"status":401,"title":"Unauthorized"}]}`)
		return
	}

	switch {
	case path == "/manga/status" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"result": "ok", "statuses": f.statuses})

	case path == "/user/follows/manga":
		items := []map[string]any{}
		for id := range f.follows {
			items = append(items, map[string]any{"id": id, "type": "manga"})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": "ok", "data": items, "limit": 100, "offset": 0, "total": len(items),
		})

	case strings.HasSuffix(path, "/status") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/manga/"), "/status")
		if id == f.failOn {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"result":"error","errors":[{"status":500,"title":"Internal error"}]}`)
			return
		}
		var body struct {
			Status *string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Status == nil {
			delete(f.statuses, id)
		} else {
			f.statuses[id] = *body.Status
		}
		io.WriteString(w, `{"result":"ok"}`)

	case strings.HasSuffix(path, "/follow") && r.Method == http.MethodDelete:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/manga/"), "/follow")
		delete(f.follows, id)
		io.WriteString(w, `{"result":"ok"}`)

	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"result":"error","errors":[{"status":404,"title":"Not found"}]}`)
	}
}

const (
	idA = "00000000-0000-4000-8000-00000000000a"
	idB = "00000000-0000-4000-8000-00000000000b"
	idC = "00000000-0000-4000-8000-00000000000c"
	idD = "00000000-0000-4000-8000-00000000000d"
	idE = "00000000-0000-4000-8000-00000000000e"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		EnvFile:      filepath.Join(t.TempDir(), "auth.env"),
		BaseURL:      baseURL,
		UserAgent:    "mdhold-test",
		RefreshToken: "stored-refresh",
		RateCalls:    5,
		RatePeriod:   100 * time.Millisecond,
		RateStrategy: "window",
		TokenStore:   config.TokenStoreEnvFile,
		JournalPath:  filepath.Join(t.TempDir(), "journal.db"),
		LogLevel:     "info",
	}
}

func TestE2E_HoldAndUnfollowEverything(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	fake := newFakeMangaDex(map[string]string{
		idA: "reading",
		idB: "completed",
		idC: "reading",
		idD: "dropped",
		idE: "reading",
	})
	server := httptest.NewServer(fake)
	defer server.Close()

	controller, err := NewController(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer controller.Close()

	updater := controller.NewUpdater()

	opts := DefaultOptions()
	opts.Unfollow = true
	res, err := updater.Transition(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 5, res.Unfollowed)

	t.Run("every reading manga is on hold", func(t *testing.T) {
		statuses, err := controller.Client.Statuses(context.Background(), "")
		require.NoError(t, err)
		assert.Zero(t, statuses.Count(mangadex.StatusReading))
		assert.Equal(t, 3, statuses.Count(mangadex.StatusOnHold))
		assert.Equal(t, mangadex.StatusCompleted, statuses[idB])
	})

	t.Run("follow list is empty", func(t *testing.T) {
		follows, err := controller.Client.FollowedManga(context.Background())
		require.NoError(t, err)
		assert.Empty(t, follows)
	})

	t.Run("refresh path was used", func(t *testing.T) {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		assert.Equal(t, 1, fake.refresh)
	})

	t.Run("rate limit held", func(t *testing.T) {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		// refresh, statuses, 3 updates, 5 unfollows, statuses, follows
		require.Len(t, fake.requests, 12)
		for i := 5; i < len(fake.requests); i++ {
			gap := fake.requests[i].Sub(fake.requests[i-5])
			assert.GreaterOrEqual(t, gap, 90*time.Millisecond, "request %d started too early", i)
		}
	})

	t.Run("run was journalled", func(t *testing.T) {
		journal, err := controller.Journal()
		require.NoError(t, err)
		run, err := journal.GetRun(res.RunID)
		require.NoError(t, err)
		assert.True(t, run.Finished())
		assert.Equal(t, 3, run.Updated)
		assert.Equal(t, 5, run.Unfollowed)
		assert.Empty(t, run.Error)

		changes, err := journal.GetChanges(res.RunID)
		require.NoError(t, err)
		assert.Len(t, changes, 5)
	})
}

func TestE2E_FailureLeavesEarlierChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	fake := newFakeMangaDex(map[string]string{
		idA: "reading",
		idB: "reading",
		idC: "reading",
	})
	fake.failOn = idB
	server := httptest.NewServer(fake)
	defer server.Close()

	controller, err := NewController(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer controller.Close()

	updater := controller.NewUpdater()

	res, err := updater.Transition(context.Background(), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), idB)

	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, idB, res.Failures[0].MangaID)

	fake.mu.Lock()
	assert.Equal(t, "on_hold", fake.statuses[idA])
	assert.Equal(t, "reading", fake.statuses[idB])
	assert.Equal(t, "reading", fake.statuses[idC])
	fake.mu.Unlock()

	journal, err := controller.Journal()
	require.NoError(t, err)
	run, err := journal.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)
	assert.Contains(t, run.Error, "HTTP 500")
}

func TestE2E_JournalOff(t *testing.T) {
	fake := newFakeMangaDex(map[string]string{idA: "reading"})
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.JournalPath = config.JournalOff
	controller, err := NewController(cfg, nil)
	require.NoError(t, err)

	journal, err := controller.Journal()
	require.NoError(t, err)
	assert.Nil(t, journal)

	updater := controller.NewUpdater()
	res, err := updater.Transition(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 1, res.Updated)
}

func TestE2E_UnusableJournalDoesNotStopRun(t *testing.T) {
	fake := newFakeMangaDex(map[string]string{idA: "reading"})
	server := httptest.NewServer(fake)
	defer server.Close()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	cfg := testConfig(t, server.URL)
	cfg.JournalPath = filepath.Join(blocker, "journal.db")
	controller, err := NewController(cfg, nil)
	require.NoError(t, err)
	defer controller.Close()

	res, err := controller.NewUpdater().Transition(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 1, res.Updated)
}

func TestNewController_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.RateCalls = 0

	_, err := NewController(cfg, nil)
	assert.Error(t, err)
}

var _ Journal = (*data.Repository)(nil)
