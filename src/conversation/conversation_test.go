package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceMemory(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil)

	full, err := svc.ProcessMessage(ctx, "s1", "build terraform", NewResponseContextStrategy(5))
	require.NoError(t, err)
	assert.Equal(t, "<conversation_context>\nUserMessage(build terraform)\n</conversation_context>\n"+
		"<current_message_to_analyze>\nUserMessage(build terraform)\n</current_message_to_analyze>", full)

	require.NoError(t, svc.SaveResponse(ctx, "s1", "done"))

	history, err := svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, schema.Assistant, history.Messages[1].Role)

	other, err := svc.GetHistory(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other.Messages)

	require.NoError(t, svc.Reset(ctx, "s1"))
	history, err = svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
}

func TestStrategyTrimsTail(t *testing.T) {
	var msgs []*schema.Message
	for _, c := range []string{"a", "b", "c", "d"} {
		msgs = append(msgs, schema.UserMessage(c), schema.AssistantMessage(c+"!", nil))
	}

	out := NewResponseContextStrategy(3).BuildContext(msgs)
	assert.Equal(t, "<conversation_context>\nAssistantMessage(c!)\nUserMessage(d)\nAssistantMessage(d!)\n</conversation_context>", out)
	assert.Equal(t, 10, NewResponseContextStrategy(0).GetMaxTurns())
}

func TestRedisRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	repo := NewRedisRepository(client, time.Minute)
	const id = "s1"
	key := keyPrefix + id

	empty, err := repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, empty.Messages)

	require.NoError(t, repo.AddMessage(ctx, id, schema.UserMessage("hello")))
	require.NoError(t, repo.AddMessage(ctx, id, schema.AssistantMessage("hi there", nil)))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// Load refreshes the TTL
	mr.FastForward(40 * time.Second)
	history, err := repo.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(30 * time.Second)
	rendered, err := repo.GetContextForModel(ctx, id, NewResponseContextStrategy(5))
	require.NoError(t, err)
	assert.Equal(t, "<conversation_context>\nUserMessage(hello)\nAssistantMessage(hi there)\n</conversation_context>", rendered)

	require.NoError(t, repo.Clear(ctx, id))
	assert.False(t, mr.Exists(key))
}

func TestRedisRepositoryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	repo := NewRedisRepository(client, time.Minute)
	require.NoError(t, repo.AddMessage(ctx, "s1", schema.UserMessage("hello")))

	mr.FastForward(2 * time.Minute)
	history, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
}
