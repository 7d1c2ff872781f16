package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/profilebot/internal/bot"
	"github.com/abhisek/profilebot/internal/session"
)

func TestNotifyRouter_RepliesThroughLastTransport(t *testing.T) {
	r := newNotifyRouter(time.Hour)

	var got []string
	for _, name := range []string{"http", "lark"} {
		r.register(name, bot.NotifierFunc(func(_ context.Context, userID string, _ session.Reply) error {
			got = append(got, name+":"+userID)
			return nil
		}))
	}
	echo := handlerFunc(func(_ context.Context, _, text string) session.Reply {
		return session.Reply{Text: text}
	})

	ctx := context.Background()
	assert.Equal(t, "hi", r.handler(echo, "http").OnMessage(ctx, "u1", "hi").Text)
	r.handler(echo, "lark").OnMessage(ctx, "u2", "hi")

	require.NoError(t, r.Notify(ctx, "u1", session.Reply{}))
	require.NoError(t, r.Notify(ctx, "u2", session.Reply{}))
	assert.Equal(t, []string{"http:u1", "lark:u2"}, got)
}

func TestNotifyRouter_UnknownUser(t *testing.T) {
	r := newNotifyRouter(time.Hour)
	assert.Error(t, r.Notify(context.Background(), "ghost", session.Reply{}))
}
