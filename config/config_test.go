package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Test that LoadConfig returns a non-nil config and respects APPENV=test
func TestLoadConfigAndConnectMySQL_TestEnv(t *testing.T) {
	// Ensure APPENV=test so ConnectMySQL uses in-memory sqlite
	t.Setenv("APPENV", "test")
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	cfg := LoadConfig()
	if cfg == nil {
		t.Fatalf("expected non-nil config")
	}

	db, err := ConnectMySQL()
	if err != nil {
		t.Fatalf("ConnectMySQL failed in test env: %v", err)
	}
	if db == nil {
		t.Fatalf("expected non-nil DB connection")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APPPORT", "")
	t.Setenv("DRAFT_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_REVIEW_TOPIC", "")
	t.Setenv("DASHBOARD_CACHE_TTL", "")
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	cfg := LoadConfig()
	assert.Equal(t, uint16(8080), cfg.AppPort)
	assert.Equal(t, defaultDraftTimeout, cfg.DraftTimeout)
	assert.Equal(t, defaultReviewTopic, cfg.KafkaReviewTopic)
	assert.Equal(t, defaultDashboardCacheTTL, cfg.DashboardCacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APPPORT", "9090")
	t.Setenv("DRAFT_TIMEOUT", "10s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("DASHBOARD_CACHE_TTL", "not-a-duration")
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	cfg := LoadConfig()
	assert.Equal(t, uint16(9090), cfg.AppPort)
	assert.Equal(t, 10*time.Second, cfg.DraftTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, defaultDashboardCacheTTL, cfg.DashboardCacheTTL)
}
