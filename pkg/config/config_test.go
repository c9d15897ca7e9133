package config_test

import (
	"path/filepath"
	"testing"

	"go4.org/jsonconfig"

	"seqtopic/pkg/config"
)

func TestOpenLdbWithFamilies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")
	cfg := jsonconfig.Obj{
		"type": "ldb",
		"file": path,
		"families": map[string]interface{}{
			"my-topic": map[string]interface{}{
				"compression": "zstd",
			},
		},
	}
	b, closer, err := config.Open(cfg)
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}
	defer closer()

	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	h, err := e.Family("my-topic")
	if err != nil {
		t.Fatalf("Family(my-topic): %v", err)
	}
	if !h.Options().VerifyChecksums {
		t.Errorf("expected default VerifyChecksums=true to be preserved")
	}
}

func TestOpenKvfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.kv")
	cfg := jsonconfig.Obj{
		"type": "kvfile",
		"file": path,
	}
	b, closer, err := config.Open(cfg)
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}
	defer closer()

	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
}
