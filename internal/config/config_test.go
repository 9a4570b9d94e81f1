package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

func TestProcessAppliesDefaults(t *testing.T) {
	t.Parallel()

	lookuper := envconfig.MapLookuper(map[string]string{
		"FSUB_TOKEN":     "123:abc",
		"FSUB_ADMIN_IDS": "10,20",
		"FSUB_DOT_PATH":  t.TempDir(),
	})
	cfg, err := Process(context.Background(), lookuper)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if cfg.TelegramAPIToken != "123:abc" {
		t.Fatalf("unexpected token %q", cfg.TelegramAPIToken)
	}
	if len(cfg.AdminIDs) != 2 || cfg.AdminIDs[1] != 20 {
		t.Fatalf("unexpected admin ids %v", cfg.AdminIDs)
	}
	if cfg.DBName != "media.db" || cfg.Workers != 4 || cfg.Content.CodeLength != 12 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !cfg.Content.ProtectContent {
		t.Fatal("protect content should default to true")
	}
	if cfg.Broadcast.Rate != 25 {
		t.Fatalf("unexpected broadcast rate %v", cfg.Broadcast.Rate)
	}
	if !cfg.IsOperator(10) || cfg.IsOperator(30) {
		t.Fatal("operator membership mismatch")
	}
}

func TestProcessRequiresToken(t *testing.T) {
	t.Parallel()

	lookuper := envconfig.MapLookuper(map[string]string{
		"FSUB_ADMIN_IDS": "10",
	})
	if _, err := Process(context.Background(), lookuper); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestProcessRejectsBadCodeLength(t *testing.T) {
	t.Parallel()

	lookuper := envconfig.MapLookuper(map[string]string{
		"FSUB_TOKEN":       "t",
		"FSUB_ADMIN_IDS":   "1",
		"FSUB_CODE_LENGTH": "4",
		"FSUB_DOT_PATH":    t.TempDir(),
	})
	if _, err := Process(context.Background(), lookuper); err == nil {
		t.Fatal("expected error for short code length")
	}
}

func TestFormatterSortsFields(t *testing.T) {
	t.Parallel()

	f := &NbFormatter{SkipCaller: true}
	entry := &log.Entry{
		Logger:  log.New(),
		Level:   log.InfoLevel,
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: "hello\nworld",
		Data:    log.Fields{"zeta": 1, "alpha": "x"},
	}
	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	s := string(out)
	if strings.Index(s, "alpha") > strings.Index(s, "zeta") {
		t.Fatalf("fields not sorted: %q", s)
	}
	if strings.Count(s, "\n") != 1 || !strings.Contains(s, `hello\nworld`) {
		t.Fatalf("newlines not escaped: %q", s)
	}
}
