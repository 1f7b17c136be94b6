package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

var (
	_ Notifier = Noop{}
	_ Notifier = Func(nil)
	_ Notifier = (*NATS)(nil)
)

func TestBuildEvent_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(BuildEvent{
		BuildID:   "b1",
		Mode:      "incremental",
		Outcome:   "success",
		Rendered:  2,
		Changed:   []string{"posts/b/index.html"},
		Timestamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "b1", m["build_id"])
	assert.Equal(t, "incremental", m["mode"])
	assert.NotContains(t, m, "revision")
}

func TestFunc_ForwardsEvents(t *testing.T) {
	var got []BuildEvent
	n := Func(func(_ context.Context, ev BuildEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, n.Notify(t.Context(), BuildEvent{BuildID: "x"}))
	require.NoError(t, n.Close())
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].BuildID)
}

func TestNewNATS_RequiresURL(t *testing.T) {
	_, err := NewNATS("", "sitebuilder.builds", retry.DefaultPolicy(), nil)
	require.Error(t, err)
}
