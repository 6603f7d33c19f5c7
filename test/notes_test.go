//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	notesBox "github.com/2beens/notesapp/internal/notes_box"
	"github.com/2beens/notesapp/internal/storage"
	"github.com/2beens/notesapp/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path, body string) (int, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) listNotes(ctx context.Context) notesBox.NotesListResponse {
	status, body := s.doRequest(ctx, http.MethodGet, "/notes", "")
	require.Equal(s.T(), http.StatusOK, status)

	var notesResp notesBox.NotesListResponse
	require.NoError(s.T(), json.Unmarshal(body, &notesResp))
	return notesResp
}

func (s *IntegrationTestSuite) persistedEntry() []notesBox.Note {
	var value string
	err := s.DB.QueryRow(`SELECT value FROM storage_entry WHERE key = $1`, testStorageKey).Scan(&value)
	require.NoError(s.T(), err)

	var notes []notesBox.Note
	require.NoError(s.T(), json.Unmarshal([]byte(value), &notes))
	return notes
}

func (s *IntegrationTestSuite) TestNotesLifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	status, _ := s.doRequest(ctx, http.MethodDelete, "/notes", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, s.listNotes(ctx).Notes)

	var created []notesBox.Note
	for i := 0; i < 3; i++ {
		status, body := s.doRequest(ctx, http.MethodPost, "/notes", "")
		require.Equal(t, http.StatusCreated, status)
		var note notesBox.Note
		require.NoError(t, json.Unmarshal(body, &note))
		assert.Equal(t, notesBox.DefaultTitle, note.Title)
		created = append(created, note)
	}

	// most recent first
	notesResp := s.listNotes(ctx)
	require.Equal(t, 3, notesResp.Total)
	assert.Equal(t, created[2].ID, notesResp.Notes[0].ID)
	assert.Equal(t, created[0].ID, notesResp.Notes[2].ID)

	title := gofakeit.Sentence(4)
	content := gofakeit.Paragraph(2, 3, 10, " ")
	payload, err := json.Marshal(map[string]string{"title": title, "content": content})
	require.NoError(t, err)
	status, body := s.doRequest(ctx, http.MethodPut, "/notes/"+created[1].ID, string(payload))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "updated:"+created[1].ID, string(body))

	status, body = s.doRequest(ctx, http.MethodGet, "/notes/"+created[1].ID, "")
	require.Equal(t, http.StatusOK, status)
	var updated notesBox.Note
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, content, updated.Content)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	status, _ = s.doRequest(ctx, http.MethodDelete, "/notes/"+created[0].ID, "")
	require.Equal(t, http.StatusOK, status)

	// what the service sees is what postgres holds
	persisted := s.persistedEntry()
	require.Len(t, persisted, 2)
	assert.Equal(t, created[2].ID, persisted[0].ID)
	assert.Equal(t, title, persisted[1].Title)

	status, _ = s.doRequest(ctx, http.MethodGet, "/notes/"+created[0].ID, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestNotesReload_ExternalWrite() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	entry := `[{"id":"external-1","title":"From another client","content":"hello","createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-01T10:00:00Z"},{"id":""}]`
	_, err := s.DB.Exec(
		`INSERT INTO storage_entry (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		testStorageKey, entry,
	)
	require.NoError(t, err)

	status, _ := s.doRequest(ctx, http.MethodPost, "/notes/reload", "")
	require.Equal(t, http.StatusOK, status)

	// the invalid record is dropped
	notesResp := s.listNotes(ctx)
	require.Equal(t, 1, notesResp.Total)
	assert.Equal(t, "external-1", notesResp.Notes[0].ID)
	assert.Equal(t, "From another client", notesResp.Notes[0].Title)

	// corrupted entry resets the collection
	_, err = s.DB.Exec(`UPDATE storage_entry SET value = 'not json' WHERE key = $1`, testStorageKey)
	require.NoError(t, err)
	status, _ = s.doRequest(ctx, http.MethodPost, "/notes/reload", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, s.listNotes(ctx).Notes)
}

func (s *IntegrationTestSuite) TestRedisBackend_SurvivesNewStore() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t := s.T()

	rdb := redis.NewClient(&redis.Options{
		Addr: net.JoinHostPort("localhost", s.redisPort),
	})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	keyPrefix := fmt.Sprintf("it-%d:", time.Now().UnixNano())
	redisStorage := storage.NewRedisStorage(rdb, keyPrefix)

	store := notesBox.NewStore(redisStorage, testStorageKey, metrics.NewTestManager())
	store.LoadFromStorage(ctx)
	require.Empty(t, store.Notes())

	note, err := store.CreateNote(ctx)
	require.NoError(t, err)
	newContent := gofakeit.Sentence(8)
	require.NoError(t, store.UpdateNote(ctx, note.ID, notesBox.UpdateData{Content: &newContent}))

	// a fresh store over the same key sees the same collection
	reopened := notesBox.NewStore(redisStorage, testStorageKey, metrics.NewTestManager())
	reopened.LoadFromStorage(ctx)
	require.Len(t, reopened.Notes(), 1)
	assert.Equal(t, note.ID, reopened.Notes()[0].ID)
	assert.Equal(t, newContent, reopened.Notes()[0].Content)

	raw, err := rdb.Get(ctx, keyPrefix+testStorageKey).Result()
	require.NoError(t, err)
	assert.Contains(t, raw, newContent)
}
