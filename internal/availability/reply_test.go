package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/phone"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplies_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("attributes a reply to the latest check", func(t *testing.T) {
		f := newFixture(t)
		f.records.PutEntity(records.Entity{ID: "recOther", Name: "Dockside Office"})

		_, err := f.dispatcher.Dispatch(ctx, "recOther", []string{"recAlice"})
		require.NoError(t, err)

		f.clock.Advance(time.Minute)

		_, err = f.dispatcher.Dispatch(ctx, "recJob", []string{"recAlice"})
		require.NoError(t, err)

		outcome, err := f.replies.Handle(ctx, "+15550100001", " Yes ")
		require.NoError(t, err)

		assert.Equal(t, "recJob", outcome.Entity.ID)
		assert.Equal(t, availability.Yes, outcome.Answer)
		assert.Equal(t, []string{"recAlice"}, f.entity(t).AvailableResponderIDs)
	})

	t.Run("no by sms withdraws availability", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.dispatcher.Dispatch(ctx, "recJob", []string{"recBob"})
		require.NoError(t, err)

		_, err = f.replies.Handle(ctx, "+15550100002", "YES")
		require.NoError(t, err)

		_, err = f.replies.Handle(ctx, "5550100002", "no")
		require.NoError(t, err)

		entity := f.entity(t)
		assert.Empty(t, entity.AvailableResponderIDs)
		assert.Len(t, splitLines(entity.ResponseLog), 2)
	})

	t.Run("rejects anything but yes or no", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.replies.Handle(ctx, "+15550100001", "call me")
		require.ErrorIs(t, err, availability.ErrNotAnAnswer)
	})

	t.Run("unknown sender", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.replies.Handle(ctx, "+15559999999", "yes")
		require.ErrorIs(t, err, records.ErrResponderNotFound)

		_, err = f.replies.Handle(ctx, "12", "yes")
		require.ErrorIs(t, err, phone.ErrInvalid)
	})

	t.Run("responder never asked", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.replies.Handle(ctx, "+15550100001", "yes")
		require.ErrorIs(t, err, availability.ErrNoOpenCheck)
		assert.Empty(t, f.entity(t).ResponseLog)
	})
}
