package parango

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/parangodev/parango/content"
)

func TestWatchReindexesNewFiles(t *testing.T) {
	a := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	file := filepath.Join(a.Config.ContentDir, "blog", "nuevo.md")
	body := "---\ntitle: Nuevo\ndescription: Recien llegado\ndate: 2024-04-01\n---\nHola.\n"

	writeTestFile(t, file, body)
	deadline := time.Now().Add(10 * time.Second)
	lastWrite := time.Now()
	for {
		time.Sleep(100 * time.Millisecond)
		if _, err := a.Store.GetEntry(content.Blog, "nuevo"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("new entry was not indexed")
		}
		// The first write may land before the watcher is set up. Rewrites
		// are spaced beyond the debounce so they cannot postpone a reload.
		if time.Since(lastWrite) > 4*watchDebounce {
			writeTestFile(t, file, body)
			lastWrite = time.Now()
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
