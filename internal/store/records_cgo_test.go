//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekingreal/ajudaita/internal/config"
	"github.com/alekingreal/ajudaita/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateRecord(ctx, "aluno-1", core.KindSummary, `{"text":"resumo"}`)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	fetched, err := store.GetRecord(ctx, created.ID, "aluno-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, core.KindSummary, fetched.Kind)
	require.Equal(t, `{"text":"resumo"}`, fetched.Payload)

	require.NoError(t, store.DeleteRecord(ctx, created.ID, "aluno-1"))

	_, err = store.GetRecord(ctx, created.ID, "aluno-1")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateRecord(ctx, "aluno-1", core.KindPlan, `{}`)
	require.NoError(t, err)

	_, err = store.GetRecord(ctx, created.ID, "aluno-2")
	require.ErrorIs(t, err, ErrRecordNotFound)

	err = store.DeleteRecord(ctx, created.ID, "aluno-2")
	require.ErrorIs(t, err, ErrRecordNotFound)

	// The real owner still sees it.
	_, err = store.GetRecord(ctx, created.ID, "aluno-1")
	require.NoError(t, err)
}

func TestListRecordsFiltersByKind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateRecord(ctx, "aluno-1", core.KindChat, `{"q":"a"}`)
	require.NoError(t, err)
	_, err = store.CreateRecord(ctx, "aluno-1", core.KindPlan, `{}`)
	require.NoError(t, err)
	_, err = store.CreateRecord(ctx, "aluno-2", core.KindChat, `{"q":"b"}`)
	require.NoError(t, err)

	all, err := store.ListRecords(ctx, "aluno-1", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	chats, err := store.ListRecords(ctx, "aluno-1", core.KindChat, 0)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, core.KindChat, chats[0].Kind)
}

func TestCreateRecordValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateRecord(ctx, "", core.KindChat, `{}`)
	require.Error(t, err)

	_, err = store.CreateRecord(ctx, "aluno-1", core.RecordKind("bogus"), `{}`)
	require.Error(t, err)
}

func TestVotes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	record, err := store.CreateRecord(ctx, "aluno-1", core.KindBoard, `{}`)
	require.NoError(t, err)

	require.NoError(t, store.SetVote(ctx, record.ID, "aluno-2", 1))
	require.NoError(t, store.SetVote(ctx, record.ID, "aluno-3", -1))

	counts, err := store.VoteCounts(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, core.VoteCounts{Up: 1, Down: 1}, counts)

	// Re-voting replaces, never stacks.
	require.NoError(t, store.SetVote(ctx, record.ID, "aluno-2", -1))
	counts, err = store.VoteCounts(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, core.VoteCounts{Up: 0, Down: 2}, counts)

	require.NoError(t, store.RemoveVote(ctx, record.ID, "aluno-3"))
	counts, err = store.VoteCounts(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, core.VoteCounts{Up: 0, Down: 1}, counts)
}

func TestSetVoteValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	record, err := store.CreateRecord(ctx, "aluno-1", core.KindCard, `{}`)
	require.NoError(t, err)

	require.Error(t, store.SetVote(ctx, record.ID, "aluno-2", 0))
	require.Error(t, store.SetVote(ctx, record.ID, "aluno-2", 5))
	require.ErrorIs(t, store.SetVote(ctx, "missing-id", "aluno-2", 1), ErrRecordNotFound)
}
