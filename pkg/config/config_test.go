package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sdejongh/filesage/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Network.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Network.Timeout)
	}
	if cfg.Network.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Network.MaxRetries)
	}
	if cfg.Hashing.PartialChunkSize != 64*1024 || cfg.Hashing.StreamChunkSize != 64*1024 {
		t.Errorf("chunk sizes = %d/%d, want 64KiB", cfg.Hashing.PartialChunkSize, cfg.Hashing.StreamChunkSize)
	}
	if cfg.Hashing.PreferPartial || cfg.EnforceContentType {
		t.Error("PreferPartial and EnforceContentType should default to false")
	}
	if cfg.Confirmation != models.ConfirmFirstSuccess {
		t.Errorf("Confirmation = %s, want first-success", cfg.Confirmation)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"ZeroPartialChunk", func(c *Config) { c.Hashing.PartialChunkSize = 0 }, "hashing.partial_chunk_size"},
		{"NegativeStreamChunk", func(c *Config) { c.Hashing.StreamChunkSize = -1 }, "hashing.stream_chunk_size"},
		{"ZeroTimeout", func(c *Config) { c.Network.Timeout = 0 }, "network.timeout"},
		{"NegativeRetries", func(c *Config) { c.Network.MaxRetries = -1 }, "network.max_retries"},
		{"BadBackoff", func(c *Config) { c.Network.Backoff = "linear" }, "network.backoff"},
		{"BadConfirmation", func(c *Config) { c.Confirmation = "some" }, "confirmation"},
		{"BadLocalMethod", func(c *Config) { c.LocalMethod = "diff" }, "local_method"},
		{"BadPolicy", func(c *Config) { c.Policies = []models.Policy{{Kind: "sha1"}} }, "policies[0]"},
		{"BadOutput", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	t.Run("EmptyPolicyListIsValid", func(t *testing.T) {
		cfg := Default()
		cfg.Policies = nil
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Policies = []models.Policy{
		models.NewPolicy(models.PolicyContentLength),
		models.ETagPolicy("abc"),
	}
	cfg.Network.Timeout = 5 * time.Second
	cfg.Hashing.PreferPartial = true

	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Network.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", loaded.Network.Timeout)
	}
	if !loaded.Hashing.PreferPartial {
		t.Error("PreferPartial not preserved")
	}
	if len(loaded.Policies) != 2 || loaded.Policies[1] != models.ETagPolicy("abc") {
		t.Errorf("Policies = %+v", loaded.Policies)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "network:\n  timeout: 10s\npolicies: [stream-hash]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Network.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Network.Timeout)
	}
	if cfg.Network.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want default 2", cfg.Network.MaxRetries)
	}
	if len(cfg.Policies) != 1 || cfg.Policies[0].Kind != models.PolicyStreamHash {
		t.Errorf("Policies = %+v", cfg.Policies)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("hashing:\n  partial_chunk_size: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() should reject a zero chunk size")
	}
}

func TestLoadNamesBadPolicy(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
		want  string
	}{
		{"UnknownKind", "policies:\n  - content-length\n  - checksum\n", "policies[1]", "line 3: unknown policy"},
		{"ParamOnWrongKind", "policies:\n  - stream-hash=abc\n", "policies[0]", "does not take a parameter"},
		{"EtagOnMapping", "policies:\n  - etag\n  - {kind: download-hash, etag: abc}\n", "policies[1]", "does not take an etag"},
		{"NotAList", "policies: {kind: etag}\n", "policies", "must be a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadFromFile(path)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if !strings.Contains(ve.Message, tt.want) {
				t.Errorf("Message = %q, want it to contain %q", ve.Message, tt.want)
			}
		})
	}
}

func TestLoadEmptyPolicyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("policies:\nconfirmation: all\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if len(cfg.Policies) != 0 {
		t.Errorf("Policies = %+v, want empty", cfg.Policies)
	}
	if cfg.Confirmation != models.ConfirmAll {
		t.Errorf("Confirmation = %q, want all", cfg.Confirmation)
	}
}

func TestSaveWritesHeaderAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stale: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := SaveToFile(Default(), path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# filesage configuration") {
		t.Errorf("saved file should start with the header, got %q", firstLine(string(data)))
	}
	if strings.Contains(string(data), "stale") {
		t.Error("saved file still holds the previous content")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the config file", len(entries))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func TestStore(t *testing.T) {
	t.Run("SnapshotIsolation", func(t *testing.T) {
		store := NewStore(nil)
		snapshot := store.Current()

		if err := store.Update(func(c *Config) { c.Hashing.PartialChunkSize = 3 }); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if snapshot.Hashing.PartialChunkSize != 64*1024 {
			t.Error("existing snapshot was modified by Update")
		}
		if store.Current().Hashing.PartialChunkSize != 3 {
			t.Error("Update was not published")
		}
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		store := NewStore(nil)
		bad := Default()
		bad.Network.Timeout = 0
		if err := store.Set(bad); err == nil {
			t.Error("Set() should reject invalid configuration")
		}
		if err := store.Update(func(c *Config) { c.Hashing.StreamChunkSize = 0 }); err == nil {
			t.Error("Update() should reject invalid configuration")
		}
		if store.Current().Network.Timeout != 30*time.Second {
			t.Error("invalid configuration was published")
		}
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		store := NewStore(nil)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Update(func(c *Config) { c.Network.MaxRetries++ })
			}()
		}
		wg.Wait()
		if got := store.Current().Network.MaxRetries; got != 22 {
			t.Errorf("MaxRetries = %d, want 22", got)
		}
	})
}
