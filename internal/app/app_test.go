package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/internal/bot"
)

type recordingMessenger struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (m *recordingMessenger) Send(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = make(map[int64][]string)
	}
	m.sent[chatID] = append(m.sent[chatID], text)
	return nil
}

func (m *recordingMessenger) count(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent[chatID])
}

func testConfig(t *testing.T) *coreconfig.Config {
	t.Helper()
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{Token: "123:abc", AdminID: 7},
		Storage:  coreconfig.StorageConfig{Records: coreconfig.BackendMemory},
		Pricing:  coreconfig.PricingConfig{Provider: coreconfig.ProviderSimulated},
		Broadcast: coreconfig.BroadcastConfig{
			Enabled:    true,
			ChatIDs:    []int64{-100, -200},
			RunOnStart: true,
		},
	}
	require.NoError(t, coreconfig.Normalize(cfg))
	return cfg
}

func TestBuildWithMemoryBackends(t *testing.T) {
	a, err := Build(testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Registry)
	assert.NotEmpty(t, opts.Routes)
	assert.NotEmpty(t, opts.Middlewares)
	assert.NotNil(t, opts.OnStart)
	assert.NotNil(t, opts.OnStop)

	_, cmd, ok := opts.Registry.LookupCommand("/broadcast")
	require.True(t, ok)
	assert.True(t, cmd.AdminOnly)
}

func TestBuildRejectsMissingBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Records = coreconfig.BackendPostgres
	_, err := Build(cfg, nil)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Storage.Sessions = coreconfig.BackendRedis
	_, err = Build(cfg, nil)
	require.Error(t, err)
}

func TestBroadcastJobRunsOnStartAndOnTrigger(t *testing.T) {
	a, err := Build(testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	m := &recordingMessenger{}
	require.NoError(t, a.addJobs(m))
	require.NoError(t, a.sched.Start(context.Background()))

	require.Eventually(t, func() bool { return m.count(-100) == 1 && m.count(-200) == 1 }, time.Second, 10*time.Millisecond)
	m.mu.Lock()
	assert.True(t, strings.Contains(m.sent[-100][0], "Gold price update"))
	m.mu.Unlock()

	require.NoError(t, a.sched.Trigger(bot.BroadcastJob))
	require.Eventually(t, func() bool { return m.count(-100) == 2 }, time.Second, 10*time.Millisecond)
}

func TestDisabledJobsAreNotRegistered(t *testing.T) {
	cfg := testConfig(t)
	cfg.Broadcast.Enabled = false
	a, err := Build(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.addJobs(&recordingMessenger{}))
	require.NoError(t, a.sched.Start(context.Background()))
	assert.Error(t, a.sched.Trigger(bot.BroadcastJob))
	assert.Error(t, a.sched.Trigger(alertsJob))
}
