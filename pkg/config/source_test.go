package config

import (
	"os"
	"sync"
	"testing"
)

func TestSource_NoPath(t *testing.T) {
	initial := Default()
	src := NewSource("", initial, nil)

	cfg, err := src.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg != initial || src.Current() != initial {
		t.Error("a Source without a path must keep its initial config")
	}
}

func TestSource_Reload(t *testing.T) {
	path := writeConfig(t, "export:\n  chunk_size: 5\n")
	initial, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	src := NewSource(path, initial, nil)

	if err := os.WriteFile(path, []byte("export:\n  chunk_size: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := src.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg.Export.ChunkSize != 7 || src.Current().Export.ChunkSize != 7 {
		t.Errorf("chunk size after reload = %d, want 7", src.Current().Export.ChunkSize)
	}
}

func TestSource_ReloadKeepsPreviousOnError(t *testing.T) {
	path := writeConfig(t, "export:\n  chunk_size: 5\n")
	initial, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	src := NewSource(path, initial, nil)

	for _, content := range []string{
		"export:\n  chunk_size: -1\n",
		"export: [not, a, map",
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := src.Reload()
		if err == nil {
			t.Errorf("Reload(%q) expected error", content)
		}
		if cfg != initial || src.Current() != initial {
			t.Errorf("Reload(%q) replaced the working config", content)
		}
	}
}

func TestSource_Pin(t *testing.T) {
	path := writeConfig(t, "ingest:\n  path: edited.csv\nexport:\n  chunk_size: 9\n")
	initial := Default()
	initial.Ingest.Path = "startup.csv"

	src := NewSource(path, initial, func(next *Config) {
		next.Ingest.Path = initial.Ingest.Path
	})
	cfg, err := src.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg.Ingest.Path != "startup.csv" {
		t.Errorf("ingest path = %q, want pinned startup.csv", cfg.Ingest.Path)
	}
	if cfg.Export.ChunkSize != 9 {
		t.Errorf("chunk size = %d, want 9", cfg.Export.ChunkSize)
	}
}

func TestSource_PinnedInvalid(t *testing.T) {
	path := writeConfig(t, "export:\n  chunk_size: 3\n")
	initial := Default()

	src := NewSource(path, initial, func(next *Config) {
		next.Export.ChunkSize = -4
	})
	if _, err := src.Reload(); err == nil {
		t.Fatal("expected validation error after pin")
	}
	if src.Current() != initial {
		t.Error("invalid pinned config must not become current")
	}
}

func TestSource_Concurrent(t *testing.T) {
	path := writeConfig(t, "export:\n  chunk_size: 2\n")
	src := NewSource(path, Default(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = src.Reload()
		}()
		go func() {
			defer wg.Done()
			_ = src.Current()
		}()
	}
	wg.Wait()

	if src.Current().Export.ChunkSize != 2 {
		t.Errorf("chunk size = %d, want 2", src.Current().Export.ChunkSize)
	}
}
