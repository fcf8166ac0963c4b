package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/aula/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	convey.Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Defaults apply", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "aula.db")
			convey.So(cfg.RatioMode, convey.ShouldEqual, config.RatioModeDominant)
			convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 200_000)
			convey.So(cfg.WorkerCount, convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AULA_ADDR", ":9090")
	t.Setenv("AULA_RATIO_MODE", "threshold_sum")
	t.Setenv("AULA_QUEUE_SIZE", "128")

	convey.Convey("Given environment overrides", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
		convey.So(cfg.RatioMode, convey.ShouldEqual, config.RatioModeThresholdSum)
		convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 128)
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "addr: \":7070\"\nmodel_path: /models/forest.json\nworker_count: 4\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AULA_CONFIG", path)

	convey.Convey("Given a YAML config file", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
		convey.So(cfg.ModelPath, convey.ShouldEqual, "/models/forest.json")
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
	})
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AULA_CONFIG", path)
	t.Setenv("AULA_ADDR", ":6060")

	convey.Convey("Given both a file and an environment override", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
	})
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("AULA_RATIO_MODE", "vibes")

	convey.Convey("Given an invalid ratio mode", t, func() {
		_, err := config.Load(context.Background())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("AULA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	convey.Convey("Given a missing config file path", t, func() {
		_, err := config.Load(context.Background())
		convey.So(err, convey.ShouldNotBeNil)
	})
}
