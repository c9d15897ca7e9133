// Package config builds a storebuilder.Builder from a declarative
// go4.org/jsonconfig object, the Go counterpart of perkeep-perkeep's
// pkg/sorted.NewKeyValue: a small "type" switch over
// RequiredString/OptionalString/OptionalInt config keys, rather than a
// bespoke flag or struct-tag-based config loader.
//
// Example:
//
//	cfg := jsonconfig.Obj{
//		"type": "ldb",
//		"file": "/var/lib/seqtopic/store.ldb",
//		"families": map[string]interface{}{
//			"my-topic": map[string]interface{}{"compression": "zstd"},
//		},
//		"cacheEntries": float64(4096),
//	}
//	b, closer, err := config.Open(cfg)
package config

import (
	"fmt"

	"go4.org/jsonconfig"

	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/kvfile"
	"seqtopic/pkg/engine/ldb"
	"seqtopic/pkg/storebuilder"
)

// Open interprets cfg and returns a ready storebuilder.Builder over
// the chosen backend, plus an io.Closer-shaped func to release it.
// Recognized keys:
//
//	type          - "ldb" (default) or "kvfile"
//	file          - required, the backend's storage path
//	cacheEntries  - optional, shared engine.Cache capacity (default 0: disabled)
//	families      - optional, map of family name -> {verifyChecksums, sync, compression}
func Open(cfg jsonconfig.Obj) (*storebuilder.Builder, func() error, error) {
	typ := cfg.OptionalString("type", "ldb")
	file := cfg.RequiredString("file")
	cacheEntries := cfg.OptionalInt("cacheEntries", 0)
	familiesObj := cfg.OptionalObject("families")
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var cache *engine.Cache
	if cacheEntries > 0 {
		c, err := engine.NewCache(cacheEntries)
		if err != nil {
			return nil, nil, fmt.Errorf("config: building shared cache: %w", err)
		}
		cache = c
	}

	backend, closer, err := openBackend(typ, file, cache)
	if err != nil {
		return nil, nil, err
	}

	b := storebuilder.New(backend)
	for name, raw := range familiesObj {
		sub, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		b = b.WithTable(name, familyOptionsFromObj(jsonconfig.Obj(sub)))
	}
	return b, closer, nil
}

func openBackend(typ, file string, cache *engine.Cache) (engine.Backend, func() error, error) {
	switch typ {
	case "ldb", "":
		var opts []ldb.Option
		if cache != nil {
			opts = append(opts, ldb.WithCache(cache))
		}
		b, err := ldb.Open(file, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("config: opening ldb backend at %q: %w", file, err)
		}
		return b, b.Close, nil
	case "kvfile":
		var opts []kvfile.Option
		if cache != nil {
			opts = append(opts, kvfile.WithCache(cache))
		}
		b, err := kvfile.Open(file, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("config: opening kvfile backend at %q: %w", file, err)
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("config: unknown backend type %q", typ)
	}
}

func familyOptionsFromObj(obj jsonconfig.Obj) engine.FamilyOptions {
	fo := engine.DefaultFamilyOptions()
	fo.VerifyChecksums = obj.OptionalBool("verifyChecksums", fo.VerifyChecksums)
	fo.Sync = obj.OptionalBool("sync", fo.Sync)
	switch obj.OptionalString("compression", "none") {
	case "zstd":
		fo.Compression = engine.CompressionZstd
	default:
		fo.Compression = engine.CompressionNone
	}
	return fo
}
