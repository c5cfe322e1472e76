package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/domain/stage"
	apperrors "github.com/alexisbeaulieu97/portgraph/pkg/errors"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	s, err := Load(context.Background(), writeSettings(t, "log_level: debug\ncache:\n  capacity: 8\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 8, s.Cache.Capacity)
	assert.Equal(t, DefaultRepairTimeout, s.Repair.Timeout)
	assert.Equal(t, port.RepairKeep, s.RepairChoice())
	assert.True(t, s.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsNamespace, s.Metrics.Namespace)

	empty, err := Load(context.Background(), writeSettings(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)

	noPath, err := Load(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), noPath)
}

func TestLoadFullSettings(t *testing.T) {
	path := writeSettings(t, `
log_level: warn
human_readable: true
interactive: true
record_metadata: true
cache:
  capacity: 64
repair:
  timeout: 3s
  choice: revert
metrics:
  enabled: false
  namespace: editor
quick_fixes:
  disallow_stages: [Multiplier]
`)
	s, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, s.Interactive)
	assert.True(t, s.RecordMetaData)
	assert.Equal(t, 3*time.Second, s.Repair.Timeout)
	assert.Equal(t, port.RepairRevert, s.RepairChoice())
	assert.False(t, s.Metrics.Enabled)
	assert.Equal(t, []string{"Multiplier"}, s.QuickFixes.DisallowStages)

	out, err := Marshal(s)
	require.NoError(t, err)
	again, err := Parse(out, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		field   string
		line    int
	}{
		{name: "bad level", content: "log_level: chatty\n", field: "log_level"},
		{name: "negative capacity", content: "cache:\n  capacity: -1\n", field: "cache.capacity"},
		{name: "bad namespace", content: "metrics:\n  namespace: my-app\n", field: "metrics.namespace"},
		{name: "bad choice", content: "repair:\n  choice: undo\n", field: "repair.choice"},
		{name: "empty stage", content: "quick_fixes:\n  disallow_stages: ['']\n", field: "quick_fixes.disallow_stages[0]"},
		{name: "wrong type", content: "log_level: info\ncache:\n  capacity: lots\n", line: 3},
		{name: "unknown key", content: "log_level: info\ncolour: red\n", line: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeSettings(t, tc.content), nil)
			require.Error(t, err)
			if tc.field != "" {
				var valErr *apperrors.ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Equal(t, tc.field, valErr.Field)
				return
			}
			var parseErr *apperrors.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.line, parseErr.Line)
		})
	}

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(ctx, "portgraph.yaml", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuntimeWiring(t *testing.T) {
	s := Default()
	s.Interactive = true
	s.Cache.Capacity = 4
	s.QuickFixes.DisallowStages = []string{"Multiplier"}

	var logs bytes.Buffer
	rt, err := s.Environment(RuntimeOptions{LogWriter: &logs})
	require.NoError(t, err)
	require.NotNil(t, rt.Metrics)
	assert.True(t, rt.Env.IsInteractive())
	assert.Same(t, rt.Cache, rt.Env.Cache())

	p := stage.NewProcess("runtime", rt.Env)
	s1, err := p.AddStage("s")
	require.NoError(t, err)
	in, err := s1.Inputs().CreatePort("in")
	require.NoError(t, err)
	in.Receive(map[string]any{"n": 1})
	in.FreeMemory()
	assert.NotNil(t, in.RawData(), "interactive sessions keep a secondary copy")
	assert.Equal(t, 1, rt.Cache.Len())

	cfg := rt.RepairConfig(p)
	assert.Equal(t, port.AutoPresenter{Choice: port.RepairKeep}, cfg.Presenter)
	assert.Same(t, p, cfg.Inserter)
	assert.Equal(t, DefaultRepairTimeout, cfg.Timeout)

	off := Default()
	off.Metrics.Enabled = false
	rt, err = off.Environment(RuntimeOptions{LogWriter: &logs})
	require.NoError(t, err)
	assert.Nil(t, rt.Metrics)

	off.LogLevel = "chatty"
	_, err = off.Environment(RuntimeOptions{LogWriter: &logs})
	require.Error(t, err)
}
