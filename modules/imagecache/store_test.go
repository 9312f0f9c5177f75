package imagecache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{
		Dir:           t.TempDir(),
		TTL:           3 * time.Minute,
		SweepInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return store
}

// age rewinds an entry's mtime so it looks older than it is.
func age(t *testing.T, store *Store, id string, by time.Duration) {
	t.Helper()
	past := time.Now().Add(-by)
	if err := os.Chtimes(filepath.Join(store.dir, id), past, past); err != nil {
		t.Fatalf("failed to age entry: %v", err)
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	payload := bytes.Repeat([]byte("x"), 10*1024)
	id, err := store.Put(payload, ".png")
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if !strings.HasSuffix(id, ".png") {
		t.Errorf("Put() id = %q, want .png suffix", id)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get() returned %d bytes, want the original %d", len(got), len(payload))
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown uuid", id: "0b821a2e-9f4c-4f6a-8f2e-0c7b0b1f1a2b.png"},
		{name: "not a uuid", id: "nope.png"},
		{name: "traversal", id: "../../etc/passwd"},
		{name: "empty", id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Get(tt.id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want ErrNotFound", tt.id, err)
			}
		})
	}
}

func TestStore_ExpiredGetEvicts(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Put([]byte("soon gone"), ".png")
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	age(t, store, id, store.ttl+time.Second)

	if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on expired entry error = %v, want ErrNotFound", err)
	}

	// The read deleted the file: a sweep finds nothing left for this id.
	removed, err := store.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if removed != 0 {
		t.Errorf("Sweep() removed %d, want 0 after lazy eviction", removed)
	}
	if _, err := os.Stat(filepath.Join(store.dir, id)); !os.IsNotExist(err) {
		t.Error("expired entry still on disk after Get()")
	}
}

func TestStore_SweepRemovesOnlyExpired(t *testing.T) {
	store := newTestStore(t)

	expired1, _ := store.Put([]byte("old"), ".png")
	expired2, _ := store.Put([]byte("older"), ".jpeg")
	fresh, _ := store.Put([]byte("new"), ".png")
	age(t, store, expired1, store.ttl+time.Second)
	age(t, store, expired2, store.ttl+time.Hour)

	removed, err := store.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Sweep() removed %d, want 2", removed)
	}

	if _, err := store.Get(fresh); err != nil {
		t.Errorf("Get() on fresh entry after sweep error: %v", err)
	}
	if _, err := store.Get(expired1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on swept entry error = %v, want ErrNotFound", err)
	}
}

func TestStore_PurgeAll(t *testing.T) {
	store := newTestStore(t)

	store.Put([]byte("a"), ".png")
	store.Put([]byte("b"), ".png")
	store.Put([]byte("c"), ".gif")

	if err := store.PurgeAll(); err != nil {
		t.Fatalf("PurgeAll() error: %v", err)
	}
	if got := store.Count(); got != 0 {
		t.Errorf("Count() after purge = %d, want 0", got)
	}
}

func TestStore_SafeExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{ext: ".png", want: ".png"},
		{ext: ".jpeg", want: ".jpeg"},
		{ext: "", want: ".png"},
		{ext: "png", want: ".png"},
		{ext: ".PNG", want: ".png"},
		{ext: "./../x", want: ".png"},
		{ext: ".waytoolongext", want: ".png"},
	}

	for _, tt := range tests {
		if got := safeExt(tt.ext); got != tt.want {
			t.Errorf("safeExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestStore_Count(t *testing.T) {
	store := newTestStore(t)

	if got := store.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
	store.Put([]byte("a"), ".png")
	store.Put([]byte("b"), ".png")
	if got := store.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}
