package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string, ts time.Time) *WorkflowSession {
	return &WorkflowSession{
		SessionID:    id,
		WorkflowType: "azure_landing_zone",
		UserInput:    "hub and spoke",
		Timestamp:    ts,
		Mode:         "multi_agent_aaosa",
		Otrace:       []string{"boss", "product-manager"},
	}
}

func TestMemorySessionStoreOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	now := time.Now()

	require.NoError(t, store.Save(ctx, newSession("b", now)))
	require.NoError(t, store.Save(ctx, newSession("a", now.Add(time.Second))))
	// re-save keeps position
	require.NoError(t, store.Save(ctx, newSession("b", now.Add(2*time.Second))))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].SessionID)
	assert.Equal(t, "a", list[1].SessionID)

	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	s := newSession("x", time.Now())
	require.NoError(t, store.Save(ctx, s))

	s.Mode = "mutated"
	got, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "multi_agent_aaosa", got.Mode)
}

func TestValidateSession(t *testing.T) {
	assert.Error(t, ValidateSession(nil))
	assert.Error(t, ValidateSession(&WorkflowSession{WorkflowType: "x"}))
	assert.Error(t, ValidateSession(&WorkflowSession{SessionID: "x"}))
	assert.NoError(t, ValidateSession(newSession("x", time.Now())))
}

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	store := NewRedisSessionStore(client, ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func sessionIDs(list []*WorkflowSession) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.SessionID)
	}
	return ids
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, time.Minute)
	now := time.Now()

	require.NoError(t, store.Save(ctx, newSession("b", now)))
	require.NoError(t, store.Save(ctx, newSession("a", now.Add(time.Second))))
	// re-save keeps position
	require.NoError(t, store.Save(ctx, newSession("b", now.Add(2*time.Second))))

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"boss", "product-manager"}, got.Otrace)

	ttl, err := store.TTL(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, sessionIDs(list))

	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	members, err := mr.ZMembers(sessionIndexKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, time.Minute)
	now := time.Now()

	require.NoError(t, store.Save(ctx, newSession("stale", now)))
	require.NoError(t, store.Save(ctx, newSession("live", now.Add(time.Second))))

	mr.FastForward(40 * time.Second)
	require.NoError(t, store.ExtendTTL(ctx, "live"))
	ttl, err := store.TTL(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(30 * time.Second)
	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, sessionIDs(list))

	// List drops index entries whose session key expired
	members, err := mr.ZMembers(sessionIndexKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, members)
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	assert.Error(t, err)
}

func TestTopicMemoryCommitRecall(t *testing.T) {
	mem := NewTopicMemory(t.TempDir())

	_, err := mem.Commit("session_1", "project_requirements", "Azure landing zone for 500 users")
	require.NoError(t, err)
	_, err = mem.Commit("session_1", "design_decisions", "hub and spoke")
	require.NoError(t, err)
	_, err = mem.Commit("session_1", "project_requirements", "SQL and Storage")
	require.NoError(t, err)

	facts, err := mem.Recall("session_1", "project_requirements")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "Azure landing zone for 500 users", facts[0].Fact)
	assert.Equal(t, "SQL and Storage", facts[1].Fact)

	all, err := mem.Recall("session_1", AllTopics)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "design_decisions", all[0].Topic)

	other, err := mem.Recall("session_2", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTopicMemoryRejectsEmpty(t *testing.T) {
	mem := NewTopicMemory(t.TempDir())
	_, err := mem.Commit("ns", "", "fact")
	assert.Error(t, err)
	_, err = mem.Commit("ns", "topic", "")
	assert.Error(t, err)
}

func TestTopicMemoryNamespaceIsSanitised(t *testing.T) {
	dir := t.TempDir()
	mem := NewTopicMemory(dir)
	_, err := mem.Commit("../escape", "t", "f")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestTopicMemoryNamespacesNeverShareAFile(t *testing.T) {
	dir := t.TempDir()
	mem := NewTopicMemory(dir)

	pairs := [][2]string{{"team a", "team_a"}, {"..", "default_session"}, {"a/b", "a_b"}}
	for _, pair := range pairs {
		for _, ns := range pair {
			_, err := mem.Commit(ns, "owner", ns)
			require.NoError(t, err)
		}
	}

	for _, pair := range pairs {
		assert.NotEqual(t, mem.path(pair[0]), mem.path(pair[1]))
		for _, ns := range pair {
			facts, err := mem.Recall(ns, "owner")
			require.NoError(t, err)
			require.Len(t, facts, 1, ns)
			assert.Equal(t, ns, facts[0].Fact)
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 6)
}

func TestTopicMemoryCommitKeepsUnreadableFile(t *testing.T) {
	mem := NewTopicMemory(t.TempDir())
	_, err := mem.Commit("infra", "db", "postgres 13")
	require.NoError(t, err)

	path := mem.path("infra")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("\n,")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	corrupt, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = mem.Commit("infra", "region", "eastus")
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(corrupt), string(after))
	assert.Contains(t, string(after), "postgres 13")
}

func TestTopicMemoryStatsAndCleanup(t *testing.T) {
	mem := NewTopicMemory(t.TempDir())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mem.now = func() time.Time { return base }
	_, err := mem.Commit("ns", "old", "stale fact")
	require.NoError(t, err)

	mem.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = mem.Commit("ns", "new", "fresh fact")
	require.NoError(t, err)

	stats, err := mem.Stats("ns")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFacts)
	assert.Equal(t, []string{"new", "old"}, stats.Topics)
	assert.True(t, stats.OldestEntry.Equal(base))
	assert.Greater(t, stats.FileSizeBytes, int64(0))

	removed, err := mem.Cleanup("ns", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err = mem.Stats("ns")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, stats.Topics)
}
