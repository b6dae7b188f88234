package config

import "testing"

func TestLoadSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load fresh config: %v", err)
	}
	if _, ok := cfg.Default(); ok {
		t.Fatalf("expected no default server in a fresh config")
	}

	cfg.Remember("abc123", "ws://bbs.example.org:8780/link")
	if err := Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	saved, ok := reloaded.Default()
	if !ok {
		t.Fatalf("expected a default server after save")
	}
	if saved.Hash != "abc123" || saved.URL != "ws://bbs.example.org:8780/link" {
		t.Fatalf("unexpected saved server: %+v", saved)
	}
	if saved.ConnectedAt == "" {
		t.Fatalf("expected connected_at to be recorded")
	}
}
