package posts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Stamped(t *testing.T) {
	snap := &Snapshot{NextID: 2, Posts: []PostRecord{{ID: 1, Content: "a"}}}

	before := time.Now().Add(-time.Minute)
	stamped := snap.Stamped()

	assert.Empty(t, snap.Rev, "original must not be modified")
	require.NotEmpty(t, stamped.Rev)
	assert.Equal(t, snap.NextID, stamped.NextID)
	assert.Equal(t, snap.Posts, stamped.Posts)

	revTime, err := stamped.RevTime()
	require.NoError(t, err)
	assert.True(t, revTime.After(before))
	assert.True(t, revTime.Before(time.Now().Add(time.Minute)))
}

func TestSnapshot_RevTime_Invalid(t *testing.T) {
	_, err := (&Snapshot{Rev: "not-a-tid"}).RevTime()
	assert.Error(t, err)
}
