package objectstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFSStore_PutGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}

	ctx := context.Background()
	key := "discoveries/Test_Person/20260115/20260115_120000.json"
	payload := []byte(`[{"url":"https://news24.com/a"}]`)

	if err := store.Put(ctx, key, payload); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if string(got) != string(payload) {
		t.Errorf("Get returned %q, want %q", got, payload)
	}
}

func TestFSStore_PutOverwrite(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}

	ctx := context.Background()

	if err := store.Put(ctx, "a/b.json", []byte("first")); err != nil {
		t.Fatalf("First put returned error: %v", err)
	}

	if err := store.Put(ctx, "a/b.json", []byte("second")); err != nil {
		t.Fatalf("Second put returned error: %v", err)
	}

	got, err := store.Get(ctx, "a/b.json")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if string(got) != "second" {
		t.Errorf("Expected overwritten content, got %q", got)
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore returned error: %v", err)
	}

	_, err = store.Get(context.Background(), "missing/key.json")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Expected ErrObjectNotFound, got %v", err)
	}
}

func TestKey(t *testing.T) {
	at := time.Date(2026, 1, 15, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		prefix  string
		subject string
		want    string
	}{
		{
			name:    "Plain name",
			prefix:  "discoveries",
			subject: "Senzo Mchunu",
			want:    "discoveries/Senzo_Mchunu/20260115/20260115_123045.json",
		},
		{
			name:    "Punctuation in name",
			prefix:  "discoveries",
			subject: "O'Brien, Jr.",
			want:    "discoveries/O_Brien__Jr_/20260115/20260115_123045.json",
		},
		{
			name:    "Empty prefix",
			prefix:  "",
			subject: "Test",
			want:    "Test/20260115/20260115_123045.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.prefix, tt.subject, at); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("SAST", 2*60*60)
	at := time.Date(2026, 1, 15, 1, 0, 0, 0, loc) // 2026-01-14 23:00 UTC

	want := "discoveries/Test/20260114/20260114_230000.json"
	if got := Key("discoveries", "Test", at); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
