package rawstore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesDateKeyedJSONL(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	store.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, store.Append(RawPayload{
		Endpoint: "https://geocode.example/geocodeAddresses",
		Payload:  json.RawMessage(`{"locations":[]}`),
	}))
	require.NoError(t, store.Append(RawPayload{
		Endpoint: "https://portal.example/generateToken",
		Payload:  json.RawMessage(`{"token":"abc"}`),
	}))
	require.NoError(t, store.Close())

	file, err := os.Open(filepath.Join(dir, "payloads-20260314.jsonl"))
	require.NoError(t, err)
	defer file.Close()

	var lines []RawPayload
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var payload RawPayload
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &payload))
		lines = append(lines, payload)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, "https://geocode.example/geocodeAddresses", lines[0].Endpoint)
	assert.JSONEq(t, `{"token":"abc"}`, string(lines[1].Payload))
	assert.False(t, lines[0].FetchedAt.IsZero())
}

func TestRecordSwallowsErrors(t *testing.T) {
	// no directory configured, so appends fail internally
	store := &FileStore{now: time.Now}
	store.Record("https://geocode.example", []byte(`{}`))
}
