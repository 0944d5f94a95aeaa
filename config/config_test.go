package config

import (
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	entries []*log.Entry
}

func (notifier *recordingNotifier) Notice(entry *log.Entry) {
	notifier.entries = append(notifier.entries, entry)
}

func TestInitConfigErrorNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	config := &Configuration{
		AppName:       "relay_service_test",
		Env:           DEVELOPMENT,
		DisableDB:     true,
		ErrorNotifier: notifier,
	}
	assert.Nil(t, InitConfig(config))

	// Only error level entries reach the notifier.
	log.Info("Ignored by the notifier.")
	assert.Empty(t, notifier.entries)

	log.WithFields(log.Fields{"site_id": 1}).Error("Failed to update site settings.")
	assert.Len(t, notifier.entries, 1)
	assert.Equal(t, "Failed to update site settings.", notifier.entries[0].Message)
	assert.Equal(t, log.ErrorLevel, notifier.entries[0].Level)
}

func TestInitConfigEnvOverride(t *testing.T) {
	os.Setenv("RELAYTRACK_COLLECTOR_URL", "https://collector.internal.example.com")
	defer os.Unsetenv("RELAYTRACK_COLLECTOR_URL")

	config := &Configuration{
		Env:          DEVELOPMENT,
		DisableDB:    true,
		CollectorURL: "https://api.segment.io",
	}
	assert.Nil(t, InitConfig(config))
	assert.Equal(t, "https://collector.internal.example.com", config.CollectorURL)
}
