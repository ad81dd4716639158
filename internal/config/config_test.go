package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaultAppliesBuiltinDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("got logging level %q, want the built-in default", cfg.Logging.Level)
	}
	if len(cfg.Daemon.Seeds) != 2 {
		t.Fatalf("got %d default seeds, want 2", len(cfg.Daemon.Seeds))
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir("testdata/withconfig"); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Daemon.BindAddr != "127.0.0.1:9735" {
		t.Fatalf("got bind addr %q, want 127.0.0.1:9735", cfg.Daemon.BindAddr)
	}
}

func TestLoadSeedFileParsesStaticPeerList(t *testing.T) {
	seeds, err := LoadSeedFile("testdata/seeds.yaml")
	if err != nil {
		t.Fatalf("load seed file: %v", err)
	}
	want := []string{"devnet-a.example", "devnet-b.example"}
	if len(seeds) != len(want) {
		t.Fatalf("got %d seeds, want %d", len(seeds), len(want))
	}
	for i, s := range want {
		if seeds[i] != s {
			t.Fatalf("seed %d: got %q, want %q", i, seeds[i], s)
		}
	}
}

func TestLoadSeedFileMissingFileErrors(t *testing.T) {
	if _, err := LoadSeedFile("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing seed file")
	}
}
