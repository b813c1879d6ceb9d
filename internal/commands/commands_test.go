package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tenantID = uuid.MustParse("8d3c6f0e-4b1a-4c9e-9a57-2f1d0c7b5e11")
	actorID  = uuid.MustParse("0b9f2a44-7d15-4e6b-8c3a-5e2f9d1a6c70")
	letterID = uuid.MustParse("3f6ad1c2-98e4-4b07-a1d5-c42e7b90f813")
)

type fakeReplayer struct {
	got    appaccounting.ReplayCommand
	report *appaccounting.ReplayReport
	err    error
}

func (f *fakeReplayer) Replay(_ context.Context, cmd appaccounting.ReplayCommand) (*appaccounting.ReplayReport, error) {
	f.got = cmd
	return f.report, f.err
}

type fakeDeadLetters struct {
	filter   shared.DeadLetterFilter
	letters  []*shared.DeadLetter
	replayed uuid.UUID
	resolved string
}

func (f *fakeDeadLetters) ListDeadLetters(_ context.Context, filter shared.DeadLetterFilter) (*shared.Paginated[*shared.DeadLetter], error) {
	f.filter = filter
	page := shared.NewPaginated(f.letters, int64(len(f.letters)), filter.Page, filter.PageSize)
	return &page, nil
}

func (f *fakeDeadLetters) ReplayDeadLetter(_ context.Context, _, id, _ uuid.UUID) (*shared.DeadLetter, error) {
	f.replayed = id
	return &shared.DeadLetter{ID: id, Status: shared.DeadLetterReplayed}, nil
}

func (f *fakeDeadLetters) ResolveDeadLetter(_ context.Context, _, id, _ uuid.UUID, note string) (*shared.DeadLetter, error) {
	f.resolved = note
	return &shared.DeadLetter{ID: id, Status: shared.DeadLetterResolved, ResolutionNote: note}, nil
}

type fakeSettings struct {
	calls int
}

func (f *fakeSettings) EnsureSettings(_ context.Context, id uuid.UUID) (*accounting.AccountingSettings, error) {
	f.calls++
	return accounting.DefaultSettings(id), nil
}

type harness struct {
	replayer    *fakeReplayer
	source      string
	deadLetters *fakeDeadLetters
	settings    *fakeSettings
	opened      int
	closed      int
}

func newHarness() *harness {
	return &harness{
		replayer:    &fakeReplayer{report: &appaccounting.ReplayReport{ByType: map[string]int{}}},
		deadLetters: &fakeDeadLetters{},
		settings:    &fakeSettings{},
	}
}

func (h *harness) open(context.Context, *RootOptions) (*Backend, error) {
	h.opened++
	return &Backend{
		Replays: func(source string) (Replayer, error) {
			h.source = source
			return h.replayer, nil
		},
		DeadLetters: h.deadLetters,
		Settings:    h.settings,
		Close: func() error {
			h.closed++
			return nil
		},
	}, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCommand(h.open)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "postingctl", cmd.Use)
	assert.True(t, cmd.SilenceUsage)

	for _, path := range [][]string{
		{"replay"},
		{"deadletters", "list"},
		{"deadletters", "replay"},
		{"deadletters", "resolve"},
		{"settings", "bootstrap"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "settings", "bootstrap", "--tenant", tenantID.String(), "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Zero(t, h.opened)
}

func TestReplay(t *testing.T) {
	t.Run("missing flags", func(t *testing.T) {
		_, err := newHarness().run(t, "replay", "--tenant", tenantID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required flag")
	})

	t.Run("inverted range is rejected before connecting", func(t *testing.T) {
		h := newHarness()
		_, err := h.run(t, "replay", "--tenant", tenantID.String(), "--from", "2026-09-30", "--to", "2026-09-01")
		require.Error(t, err)
		assert.Zero(t, h.opened)
	})

	t.Run("dry run text report", func(t *testing.T) {
		h := newHarness()
		h.replayer.report = &appaccounting.ReplayReport{
			Events:    4,
			Unhandled: 1,
			ByType: map[string]int{
				"TenderCompleted":   2,
				"ReturnCompleted":   1,
				"InventoryAdjusted": 1,
			},
		}

		out, err := h.run(t, "replay",
			"--tenant", tenantID.String(),
			"--from", "2026-09-01", "--to", "2026-09-30",
			"--source", "records.jsonl", "--dry-run")
		require.NoError(t, err)

		assert.Equal(t, "records.jsonl", h.source)
		assert.True(t, h.replayer.got.DryRun)
		assert.Equal(t, tenantID, h.replayer.got.TenantID)
		assert.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), h.replayer.got.To)
		assert.Equal(t, 1, h.closed)
		goldie.New(t).Assert(t, "replay_dry_run", []byte(out))
	})

	t.Run("failed events make the command fail", func(t *testing.T) {
		h := newHarness()
		h.replayer.report = &appaccounting.ReplayReport{Events: 2, Dispatched: 1, Failed: 1, ByType: map[string]int{}}

		out, err := h.run(t, "replay", "--format", "json",
			"--tenant", tenantID.String(), "--from", "2026-09-01", "--to", "2026-09-02")
		require.Error(t, err)

		var result replayResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Dispatched)
	})

	t.Run("replayer error", func(t *testing.T) {
		h := newHarness()
		h.replayer.err = errors.New("source unreadable")
		_, err := h.run(t, "replay", "--tenant", tenantID.String(), "--from", "2026-09-01", "--to", "2026-09-02")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source unreadable")
	})
}

func TestDeadLetters(t *testing.T) {
	t.Run("list filters open letters by default", func(t *testing.T) {
		h := newHarness()
		h.deadLetters.letters = []*shared.DeadLetter{{
			ID:           letterID,
			EventID:      uuid.New(),
			ConsumerName: "gl.tender",
			EventType:    "TenderCompleted",
			Status:       shared.DeadLetterOpen,
			Attempts:     5,
			ErrorMessage: "unbalanced entry",
		}}

		out, err := h.run(t, "deadletters", "list", "--tenant", tenantID.String())
		require.NoError(t, err)
		assert.Equal(t, shared.DeadLetterOpen, h.deadLetters.filter.Status)
		assert.Equal(t, tenantID, h.deadLetters.filter.TenantID)
		assert.Contains(t, out, letterID.String())
		assert.Contains(t, out, "gl.tender")
		assert.Contains(t, out, "unbalanced entry")
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		_, err := newHarness().run(t, "deadletters", "list", "--tenant", tenantID.String(), "--status", "gone")
		require.Error(t, err)
	})

	t.Run("replay", func(t *testing.T) {
		h := newHarness()
		out, err := h.run(t, "dl", "replay", letterID.String(), "--tenant", tenantID.String(), "--actor", actorID.String())
		require.NoError(t, err)
		assert.Equal(t, letterID, h.deadLetters.replayed)
		assert.Contains(t, out, "replayed")
	})

	t.Run("resolve requires a note", func(t *testing.T) {
		_, err := newHarness().run(t, "deadletters", "resolve", letterID.String(),
			"--tenant", tenantID.String(), "--actor", actorID.String())
		require.Error(t, err)
	})

	t.Run("resolve", func(t *testing.T) {
		h := newHarness()
		out, err := h.run(t, "deadletters", "resolve", letterID.String(), "--format", "json",
			"--tenant", tenantID.String(), "--actor", actorID.String(), "--note", "posted by hand")
		require.NoError(t, err)
		assert.Equal(t, "posted by hand", h.deadLetters.resolved)

		var view deadLetterView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, "resolved", view.Status)
	})

	t.Run("bad id", func(t *testing.T) {
		h := newHarness()
		_, err := h.run(t, "deadletters", "replay", "not-a-uuid", "--tenant", tenantID.String(), "--actor", actorID.String())
		require.Error(t, err)
		assert.Zero(t, h.opened)
	})
}

func TestSettingsBootstrap(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "settings", "bootstrap", "--tenant", tenantID.String(), "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, 1, h.settings.calls)

	var view settingsView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, tenantID.String(), view.TenantID)
	assert.Equal(t, accounting.DefaultBaseCurrency, view.BaseCurrency)
	assert.Equal(t, 1, view.Version)
}
