package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaguanLabs/framelai"
	"github.com/ZaguanLabs/framelai/config"
	"github.com/ZaguanLabs/framelai/provider"
)

const testFrame = `<html><body><div id="story"><p>Hello, Robin!</p></div></body></html>`

// testEnv isolates config lookup and shortens every pipeline delay.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("FRAMELAI_OPENAI_API_KEY", "")
	for _, name := range []string{"RETRY_BACKOFF", "INTER_UNIT_DELAY", "BATCH_RETRY_DELAY", "WATCH_DEBOUNCE", "KEY_UP_DELAY"} {
		t.Setenv("FRAMELAI_TIMING_"+name, "1ms")
	}
	t.Setenv("FRAMELAI_STORAGE_DEBOUNCE", "1h")
	return dir
}

func useMock(t *testing.T, m *provider.MockProvider) {
	t.Helper()
	prev := remoteFactory
	remoteFactory = func(*config.Config) (framelai.RemoteTranslator, error) {
		return m, nil
	}
	t.Cleanup(func() { remoteFactory = prev })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestRun_Version(t *testing.T) {
	testEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--version"}, strings.NewReader(""), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "framelai") {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_MissingAPIKey(t *testing.T) {
	dir := testEnv(t)
	input := filepath.Join(dir, "frame.html")
	writeFile(t, input, testFrame)

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--storage", "memory", input}, strings.NewReader(""), &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "API key required") {
		t.Errorf("expected API key error, got: %v", err)
	}
}

func TestRun_UnknownStorage(t *testing.T) {
	dir := testEnv(t)
	useMock(t, provider.NewMockProvider(nil))
	input := filepath.Join(dir, "frame.html")
	writeFile(t, input, testFrame)

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--storage", "floppy", input}, strings.NewReader(""), &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unknown storage backend") {
		t.Errorf("expected unknown backend error, got: %v", err)
	}
}

func TestRun_Translate(t *testing.T) {
	dir := testEnv(t)
	mock := provider.NewMockProvider(map[string]string{"Hello, Robin!": "안녕, 로빈!"})
	useMock(t, mock)

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--storage", "memory"}, strings.NewReader(testFrame), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr.String())
	}

	if !strings.Contains(stdout.String(), "<p>안녕, 로빈!</p>") {
		t.Errorf("expected translated paragraph, got: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), framelai.ToggleID) {
		t.Errorf("expected toggle button in output, got: %s", stdout.String())
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 remote call, got %d", mock.CallCount())
	}

	// Written to a file with the original restored.
	out := filepath.Join(dir, "out.html")
	stdout.Reset()
	err = run([]string{"translate", "--storage", "memory", "--original", "-o", out}, strings.NewReader(testFrame), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "<p>Hello, Robin!</p>") {
		t.Errorf("expected original text, got: %s", data)
	}
}

func TestRun_TranslateUsesFileCache(t *testing.T) {
	testEnv(t)
	mock := provider.NewMockProvider(map[string]string{"Hello, Robin!": "안녕, 로빈!"})
	useMock(t, mock)

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		err := run([]string{"translate", "--storage", "file"}, strings.NewReader(testFrame), &stdout, &stderr)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if !strings.Contains(stdout.String(), "안녕, 로빈!") {
			t.Errorf("run %d: expected translation, got: %s", i, stdout.String())
		}
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected the second run to be served from the cache, got %d calls", mock.CallCount())
	}
}

func TestRun_CacheCommands(t *testing.T) {
	dir := testEnv(t)
	snapshot := filepath.Join(dir, "snapshot.json")
	writeFile(t, snapshot, `{
  "version": "1.0",
  "entries": [
    {"key": "Hello, Robin!", "value": "안녕, 로빈!"},
    {"key": "Good night.", "value": "잘 자."},
    {"key": "", "value": "버려짐"}
  ]
}`)

	cacheRun := func(args ...string) string {
		t.Helper()
		var stdout, stderr bytes.Buffer
		full := append([]string{"cache"}, args...)
		full = append(full, "--storage", "file", "--storage-path", filepath.Join(dir, "store"))
		if err := run(full, strings.NewReader(""), &stdout, &stderr); err != nil {
			t.Fatalf("cache %v: %v\nstderr: %s", args, err, stderr.String())
		}
		return stdout.String()
	}

	if out := cacheRun("import", snapshot); !strings.Contains(out, "imported 2 entries (1 skipped)") {
		t.Errorf("unexpected import output: %s", out)
	}
	if out := cacheRun("stats"); !strings.Contains(out, "entries: 2") {
		t.Errorf("expected 2 entries, got: %s", out)
	}

	var exported struct {
		Entries []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(cacheRun("export")), &exported); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(exported.Entries) != 2 || exported.Entries[0].Key != "Hello, Robin!" {
		t.Errorf("expected newest entry first, got %+v", exported.Entries)
	}

	cacheRun("delete", "Good night.")
	if out := cacheRun("stats"); !strings.Contains(out, "entries: 1") {
		t.Errorf("expected 1 entry after delete, got: %s", out)
	}

	cacheRun("clear")
	if out := cacheRun("stats"); !strings.Contains(out, "entries: 0") {
		t.Errorf("expected empty cache after clear, got: %s", out)
	}
}

func TestRun_CacheDeleteMissing(t *testing.T) {
	testEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"cache", "delete", "nope", "--storage", "memory"}, strings.NewReader(""), &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no cached translation") {
		t.Errorf("expected missing key error, got: %v", err)
	}
}

func TestRun_Messages(t *testing.T) {
	dir := testEnv(t)
	useMock(t, provider.NewMockProvider(map[string]string{"Hello, Robin!": "안녕, 로빈!"}))
	input := filepath.Join(dir, "frame.html")
	writeFile(t, input, testFrame)
	out := filepath.Join(dir, "out.html")

	messages := strings.Join([]string{
		`{"action":"showCacheStats"}`,
		`{"action":"updateSettings"}`,
		`{"action":"launch"}`,
		`not json`,
		``,
		`{"action":"clearCache"}`,
	}, "\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"run", "--storage", "memory", "-o", out, input}, strings.NewReader(messages), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr.String())
	}

	var replies []framelai.Reply
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		var r framelai.Reply
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("reply is not JSON: %q", scanner.Text())
		}
		replies = append(replies, r)
	}
	if len(replies) != 5 {
		t.Fatalf("expected 5 replies, got %d: %s", len(replies), stdout.String())
	}

	if !replies[0].Success || replies[0].Stats == nil {
		t.Errorf("expected stats reply, got %+v", replies[0])
	}
	if replies[1].Success || !strings.Contains(replies[1].Error, "enabled") {
		t.Errorf("expected settings error, got %+v", replies[1])
	}
	if replies[2].Success || !strings.Contains(replies[2].Error, `unknown action "launch"`) {
		t.Errorf("expected unknown action error, got %+v", replies[2])
	}
	if replies[3].Success || !strings.Contains(replies[3].Error, "invalid message") {
		t.Errorf("expected invalid message error, got %+v", replies[3])
	}
	if !replies[4].Success {
		t.Errorf("expected clearCache to succeed, got %+v", replies[4])
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "안녕, 로빈!") {
		t.Errorf("expected translated document, got: %s", data)
	}
}

func TestRun_ConfigDisabled(t *testing.T) {
	dir := testEnv(t)
	mock := provider.NewMockProvider(nil)
	useMock(t, mock)
	writeFile(t, filepath.Join(dir, "framelai.yaml"), "enabled: false\nstorage:\n  backend: memory\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate"}, strings.NewReader(testFrame), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Hello, Robin!") {
		t.Errorf("expected untouched document, got: %s", stdout.String())
	}
	if mock.CallCount() != 0 {
		t.Errorf("expected no remote calls while disabled, got %d", mock.CallCount())
	}
}
