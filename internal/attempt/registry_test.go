package attempt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryClaimKeepsActiveSession(t *testing.T) {
	f := newFixture(t, Options{})
	active := f.start(t, "c1")

	dup, err := f.svc.newEntry(f.loader.tests[f.testID], Candidate{ID: "c1"}, nil)
	require.NoError(t, err)
	defer dup.Session.Close()

	winner, replaced := f.svc.Registry().Claim(dup)
	assert.Same(t, active, winner)
	assert.Nil(t, replaced)
}

func TestRegistryClaimReplacesSubmittedSession(t *testing.T) {
	f := newFixture(t, Options{})
	old := f.start(t, "c1")
	_, err := old.Session.Submit(context.Background())
	require.NoError(t, err)

	next, err := f.svc.newEntry(f.loader.tests[f.testID], Candidate{ID: "c1"}, nil)
	require.NoError(t, err)

	winner, replaced := f.svc.Registry().Claim(next)
	assert.Same(t, next, winner)
	assert.Same(t, old, replaced)

	found, ok := f.svc.Registry().Find(f.testID, "c1")
	require.True(t, ok)
	assert.Same(t, next, found)

	_, ok = f.svc.Registry().Get(old.Session.ID())
	assert.False(t, ok)
	old.Session.Close()
}

func TestRegistryRemoveKeepsNewerMapping(t *testing.T) {
	r := NewRegistry()
	f := newFixture(t, Options{})
	a, err := f.svc.newEntry(f.loader.tests[f.testID], Candidate{ID: "c1"}, nil)
	require.NoError(t, err)
	r.Claim(a)

	_, ok := r.Remove(a.Session.ID())
	assert.True(t, ok)
	_, ok = r.Find(f.testID, "c1")
	assert.False(t, ok)
	_, ok = r.Remove(a.Session.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySessionsForTest(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.start(t, "c1")
	b := f.start(t, "c2")

	ids := f.svc.Registry().SessionsForTest(f.testID)
	assert.ElementsMatch(t, []string{a.Session.ID(), b.Session.ID()}, ids)
	assert.Empty(t, f.svc.Registry().SessionsForTest("other"))
}
