package store

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/quotesync/internal/model"
)

func TestDecode(t *testing.T) {
	input := `[
		{"localId": "local-1", "text": " kept ", "category": " A ", "origin": "local", "updatedAt": "2024-01-02T03:04:05Z"},
		{"id": "local-2", "serverId": "jp-4", "text": "legacy", "category": "Server", "origin": "server"},
		{"text": "", "category": "A"},
		{"text": 42, "category": "A"},
		"not an object",
		{"text": "no category"}
	]`
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := Decode(strings.NewReader(input), now)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid quotes, got %d: %+v", len(got), got)
	}

	if got[0].LocalID != "local-1" || got[0].Text != "kept" || got[0].Category != "A" {
		t.Errorf("unexpected first quote: %+v", got[0])
	}
	if !got[0].UpdatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("expected parsed updatedAt, got %v", got[0].UpdatedAt)
	}

	if got[1].LocalID != "local-2" || got[1].RemoteID != "jp-4" {
		t.Errorf("expected legacy keys to map, got %+v", got[1])
	}
	if got[1].Origin != model.OriginRemote {
		t.Errorf("expected legacy origin to map to remote, got %q", got[1].Origin)
	}
	if !got[1].UpdatedAt.Equal(now) {
		t.Errorf("expected missing updatedAt to default to now, got %v", got[1].UpdatedAt)
	}
}

func TestDecode_NotArray(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"text":"a"}`), time.Now()); !errors.Is(err, ErrNotArray) {
		t.Errorf("expected ErrNotArray, got %v", err)
	}
	if _, err := Decode(strings.NewReader(`[`), time.Now()); err == nil {
		t.Error("expected parse error for truncated json")
	}
}

func TestExportDecodeRoundTrip(t *testing.T) {
	synced := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	in := []model.Quote{
		{LocalID: "local-a", Text: "one", Category: "x", UpdatedAt: synced, Origin: model.OriginLocal},
		{LocalID: "local-b", RemoteID: "jp-2", Text: "two", Category: "y", UpdatedAt: synced, Origin: model.OriginRemote, LastSyncedAt: &synced},
	}

	var buf bytes.Buffer
	if err := Export(&buf, in); err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, key := range []string{`"localId"`, `"remoteId"`, `"text"`, `"category"`, `"updatedAt"`, `"origin"`, `"lastSyncedAt"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("expected exported field %s", key)
		}
	}

	out, err := Decode(&buf, time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(out))
	}
	for i := range in {
		if out[i].LocalID != in[i].LocalID || out[i].Text != in[i].Text || out[i].Category != in[i].Category {
			t.Errorf("quote %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
	if out[1].LastSyncedAt == nil || !out[1].LastSyncedAt.Equal(synced) {
		t.Errorf("expected lastSyncedAt to round trip, got %v", out[1].LastSyncedAt)
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}
