package file_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/parley-ai/parley/pkg/persist"
	"github.com/parley-ai/parley/pkg/persist/file"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := file.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	blob := []byte(`{"conversations":[]}`)
	if err := store.Save(ctx, "snapshot", blob); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "snapshot")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("Load=%q, want %q", got, blob)
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()

	store, err := file.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Load=%q, want %q", got, "second")
	}
}

func TestLoadMissingKey(t *testing.T) {
	t.Parallel()

	store, err := file.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = store.Load(context.Background(), "never-saved")
	if !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("Load error=%v, want ErrNotFound", err)
	}
}

func TestKeySanitised(t *testing.T) {
	t.Parallel()

	store, err := file.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, "../escape/attempt", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "../escape/attempt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "x" {
		t.Errorf("Load=%q, want %q", got, "x")
	}
}
