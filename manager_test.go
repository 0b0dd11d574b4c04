package malaya

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// requestLog records the paths of requests served by a test store.
type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

// newTestStore creates a test HTTP server serving the given files, keyed by
// URL path (including the leading slash).
func newTestStore(t *testing.T, files map[string][]byte) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		data, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server, log
}

// newTestManager creates a Manager rooted in a temp directory, talking to
// the given test store. Returns the manager and the cache root.
func newTestManager(t *testing.T, server *httptest.Server) (Manager, string) {
	t.Helper()
	t.Setenv(CacheDirEnvVar, "")

	dir := t.TempDir()
	mgr, err := NewManager(
		Config{BaseURL: server.URL, CacheDir: dir},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr, dir
}

// testManifest builds a manifest rooted in dir for the given file keys.
func testManifest(dir, version string, keys ...string) Manifest {
	man := Manifest{"version": version}
	for _, key := range keys {
		man[key] = filepath.Join(dir, "sentiment", key+".bin")
	}
	return man
}

// testRemote builds a remote map with relative locators for the given keys.
func testRemote(keys ...string) RemoteMap {
	remote := make(RemoteMap, len(keys))
	for _, key := range keys {
		remote[key] = "sentiment/" + key + ".bin"
	}
	return remote
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
}

func TestAvailable(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model", "vocab")

	if mgr.Available(man) {
		t.Error("Available() = true with no files on disk, want false")
	}

	writeTestFile(t, man["model"], []byte("m"))
	if mgr.Available(man) {
		t.Error("Available() = true with vocab missing, want false")
	}

	writeTestFile(t, man["vocab"], []byte("v"))
	if !mgr.Available(man) {
		t.Error("Available() = false with all files present, want true")
	}
}

func TestAvailableNoFileKeys(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, _ := newTestManager(t, server)

	// A manifest with zero non-version keys is trivially available.
	if !mgr.Available(Manifest{"version": "1.0"}) {
		t.Error("Available() = false for manifest with no file keys, want true")
	}
}

func TestVerify(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model")

	err := mgr.Verify(man)
	if !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("Verify() error = %v, want ErrCacheUnavailable", err)
	}
	if !strings.Contains(err.Error(), man.Dir()) {
		t.Errorf("Verify() error %q does not name the cache directory %q", err, man.Dir())
	}

	writeTestFile(t, man["model"], []byte("m"))
	if err := mgr.Verify(man); err != nil {
		t.Errorf("Verify() with all files present error = %v, want nil", err)
	}
}

func TestEnsureValidCacheNoSideEffects(t *testing.T) {
	server, log := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model", "vocab")
	writeTestFile(t, man["model"], []byte("m"))
	writeTestFile(t, man["vocab"], []byte("v"))
	writeTestFile(t, man.MarkerPath(), []byte("1.0"))

	markerBefore, err := os.Stat(man.MarkerPath())
	if err != nil {
		t.Fatalf("stat marker: %v", err)
	}

	if err := mgr.Ensure(context.Background(), man, testRemote("model", "vocab")); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if log.count() != 0 {
		t.Errorf("Ensure() on valid cache made %d network calls, want 0", log.count())
	}

	markerAfter, err := os.Stat(man.MarkerPath())
	if err != nil {
		t.Fatalf("stat marker: %v", err)
	}
	if !markerAfter.ModTime().Equal(markerBefore.ModTime()) {
		t.Error("Ensure() on valid cache rewrote the version marker")
	}
}

func TestEnsureMarkerSubstringMatch(t *testing.T) {
	server, log := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model")
	writeTestFile(t, man["model"], []byte("m"))
	// Marker content merely contains the expected version.
	writeTestFile(t, man.MarkerPath(), []byte("release 1.0 (frozen)"))

	if err := mgr.Ensure(context.Background(), man, testRemote("model")); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if log.count() != 0 {
		t.Errorf("Ensure() with substring-matching marker made %d network calls, want 0", log.count())
	}
}

func TestEnsureNoMarkerDownloadsAll(t *testing.T) {
	server, log := newTestStore(t, map[string][]byte{
		"/sentiment/model.bin": []byte("fresh model"),
		"/sentiment/vocab.bin": []byte("fresh vocab"),
	})
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model", "vocab")
	// Files already on disk, but no marker: everything must be re-fetched.
	writeTestFile(t, man["model"], []byte("stale model"))
	writeTestFile(t, man["vocab"], []byte("stale vocab"))

	if err := mgr.Ensure(context.Background(), man, testRemote("model", "vocab")); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if log.count() != 2 {
		t.Errorf("Ensure() with no marker made %d network calls, want 2", log.count())
	}

	content, err := os.ReadFile(man["model"])
	if err != nil {
		t.Fatalf("reading model file: %v", err)
	}
	if string(content) != "fresh model" {
		t.Errorf("model content = %q, want %q", content, "fresh model")
	}

	marker, err := os.ReadFile(man.MarkerPath())
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if string(marker) != "1.0" {
		t.Errorf("marker content = %q, want exactly %q", marker, "1.0")
	}
}

func TestEnsureStaleMarkerInvalidatesDirectory(t *testing.T) {
	server, log := newTestStore(t, map[string][]byte{
		"/sentiment/model.bin": []byte("v2 model"),
	})
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model")
	writeTestFile(t, man["model"], []byte("v1 model"))
	writeTestFile(t, man.MarkerPath(), []byte("0.9"))

	// A stray file proves wholesale directory deletion.
	stray := filepath.Join(man.Dir(), "leftover.tmp")
	writeTestFile(t, stray, []byte("x"))

	if err := mgr.Ensure(context.Background(), man, testRemote("model")); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Error("stale cache directory was not deleted wholesale")
	}

	if log.count() != 1 {
		t.Errorf("Ensure() with stale marker made %d network calls, want 1", log.count())
	}

	content, err := os.ReadFile(man["model"])
	if err != nil {
		t.Fatalf("reading model file: %v", err)
	}
	if string(content) != "v2 model" {
		t.Errorf("model content = %q, want %q", content, "v2 model")
	}

	marker, err := os.ReadFile(man.MarkerPath())
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if string(marker) != "1.0" {
		t.Errorf("marker content = %q, want %q", marker, "1.0")
	}
}

func TestEnsureMatchingMarkerDownloadsOnlyMissing(t *testing.T) {
	server, log := newTestStore(t, map[string][]byte{
		"/sentiment/vocab.bin": []byte("vocab data"),
	})
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model", "vocab")
	writeTestFile(t, man["model"], []byte("model data"))
	writeTestFile(t, man.MarkerPath(), []byte("1.0"))

	if err := mgr.Ensure(context.Background(), man, testRemote("model", "vocab")); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if log.count() != 1 {
		t.Errorf("Ensure() made %d network calls, want 1 (only the missing file)", log.count())
	}

	content, err := os.ReadFile(man["vocab"])
	if err != nil {
		t.Fatalf("reading vocab file: %v", err)
	}
	if string(content) != "vocab data" {
		t.Errorf("vocab content = %q, want %q", content, "vocab data")
	}

	// Existing file untouched.
	content, err = os.ReadFile(man["model"])
	if err != nil {
		t.Fatalf("reading model file: %v", err)
	}
	if string(content) != "model data" {
		t.Errorf("model content = %q, want %q", content, "model data")
	}
}

func TestEnsureSingleFileScenario(t *testing.T) {
	// Manifest {model: a/m.pb, version: "1.0"}, no marker: one download,
	// marker written with "1.0".
	server, log := newTestStore(t, map[string][]byte{
		"/a/m.pb": []byte("model bytes"),
	})
	mgr, dir := newTestManager(t, server)

	man := Manifest{
		"model":   filepath.Join(dir, "a", "m.pb"),
		"version": "1.0",
	}
	remote := RemoteMap{"model": "a/m.pb"}

	if err := mgr.Ensure(context.Background(), man, remote); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if log.count() != 1 {
		t.Errorf("Ensure() made %d network calls, want 1", log.count())
	}

	marker, err := os.ReadFile(man.MarkerPath())
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if string(marker) != "1.0" {
		t.Errorf("marker content = %q, want %q", marker, "1.0")
	}
}

func TestEnsureForce(t *testing.T) {
	server, log := newTestStore(t, map[string][]byte{
		"/sentiment/model.bin": []byte("forced model"),
	})
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model")
	writeTestFile(t, man["model"], []byte("old model"))
	writeTestFile(t, man.MarkerPath(), []byte("1.0"))

	if err := mgr.Ensure(context.Background(), man, testRemote("model"), WithForce()); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if log.count() != 1 {
		t.Errorf("Ensure(WithForce) made %d network calls, want 1", log.count())
	}

	content, err := os.ReadFile(man["model"])
	if err != nil {
		t.Fatalf("reading model file: %v", err)
	}
	if string(content) != "forced model" {
		t.Errorf("model content = %q, want %q", content, "forced model")
	}
}

func TestEnsureDownloadFailureLeavesMarkerUntouched(t *testing.T) {
	// "model" is served, "vocab" 404s. Keys download in sorted order, so
	// the model lands on disk before the failure.
	server, _ := newTestStore(t, map[string][]byte{
		"/sentiment/model.bin": []byte("model data"),
	})
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model", "vocab")

	err := mgr.Ensure(context.Background(), man, testRemote("model", "vocab"))
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("Ensure() error = %v, want ErrDownloadFailed", err)
	}

	// Partial state: model downloaded, marker never written.
	if _, statErr := os.Stat(man["model"]); statErr != nil {
		t.Errorf("model file missing after partial failure: %v", statErr)
	}
	if _, statErr := os.Stat(man.MarkerPath()); !os.IsNotExist(statErr) {
		t.Error("version marker written despite download failure")
	}
}

func TestEnsureRetryAfterFailureFetchesOnlyMissing(t *testing.T) {
	server, log := newTestStore(t, map[string][]byte{
		"/sentiment/model.bin": []byte("model data"),
		"/sentiment/vocab.bin": []byte("vocab data"),
	})
	mgr, dir := newTestManager(t, server)

	// Marker matches but vocab is missing, the state a validated run finds
	// after a file was deleted out from under a previously complete cache.
	man := testManifest(dir, "1.0", "model", "vocab")
	writeTestFile(t, man["model"], []byte("model data"))
	writeTestFile(t, man.MarkerPath(), []byte("1.0"))

	if err := mgr.Ensure(context.Background(), man, testRemote("model", "vocab")); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if log.count() != 1 {
		t.Errorf("retry made %d network calls, want 1", log.count())
	}
}

func TestEnsureInvalidManifest(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	// Missing "model" entry
	err := mgr.Ensure(context.Background(), Manifest{"version": "1.0"}, RemoteMap{})
	if !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("Ensure() without model entry error = %v, want ErrInvalidManifest", err)
	}

	// Missing "version" entry
	man := Manifest{"model": filepath.Join(dir, "a", "m.pb")}
	err = mgr.Ensure(context.Background(), man, RemoteMap{})
	if !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("Ensure() without version entry error = %v, want ErrInvalidManifest", err)
	}
}

func TestEnsureMissingLocator(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model")

	err := mgr.Ensure(context.Background(), man, RemoteMap{})
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("Ensure() with no locator error = %v, want ErrInvalidManifest", err)
	}
	if !strings.Contains(err.Error(), "model") {
		t.Errorf("error %q does not name the missing key", err)
	}
}

func TestEnsureProgress(t *testing.T) {
	data := []byte("some model bytes to stream")
	server, _ := newTestStore(t, map[string][]byte{
		"/sentiment/model.bin": data,
	})
	mgr, dir := newTestManager(t, server)

	man := testManifest(dir, "1.0", "model")

	var events []Progress
	err := mgr.Ensure(context.Background(), man, testRemote("model"), WithProgress(func(p Progress) {
		events = append(events, p)
	}))
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if len(events) == 0 {
		t.Fatal("no progress events received")
	}

	for _, p := range events {
		if p.Key != "model" {
			t.Errorf("progress Key = %q, want %q", p.Key, "model")
		}
		if p.BytesTotal != int64(len(data)) {
			t.Errorf("progress BytesTotal = %d, want %d", p.BytesTotal, len(data))
		}
	}

	last := events[len(events)-1]
	if last.BytesCompleted != int64(len(data)) {
		t.Errorf("final BytesCompleted = %d, want %d", last.BytesCompleted, len(data))
	}
}

func TestClearCache(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	sub := filepath.Join(dir, "sentiment")
	writeTestFile(t, filepath.Join(sub, "model.bin"), []byte("m"))

	if err := mgr.ClearCache("sentiment"); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	if _, err := os.Stat(sub); !os.IsNotExist(err) {
		t.Error("subdirectory still exists after ClearCache")
	}
}

func TestClearCacheRejectsEscapingPaths(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, _ := newTestManager(t, server)

	for _, sub := range []string{"..", "../other", ".", ""} {
		err := mgr.ClearCache(sub)
		if !errors.Is(err, ErrStorageError) {
			t.Errorf("ClearCache(%q) error = %v, want ErrStorageError", sub, err)
		}
	}
}

func TestClearAll(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	writeTestFile(t, filepath.Join(dir, "sentiment", "model.bin"), []byte("m"))
	writeTestFile(t, filepath.Join(dir, "pos", "model.bin"), []byte("p"))

	if err := mgr.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading cache root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache root has %d entries after ClearAll, want 0", len(entries))
	}
}

func TestCacheDir(t *testing.T) {
	server, _ := newTestStore(t, nil)
	mgr, dir := newTestManager(t, server)

	if got := mgr.CacheDir(); got != dir {
		t.Errorf("CacheDir() = %q, want %q", got, dir)
	}
}
