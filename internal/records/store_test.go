package records

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pneo/internal/paper"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestUpsertIsVisibleAfterClose(t *testing.T) {
	s, path := openTestStore(t)
	s.Upsert([]paper.Entry{
		{ID: "451647", Title: "Large N", Authors: []string{"Maldacena"}, Venue: "Adv.Theor.Math.Phys. 2", Year: "1998", Created: "1997-11-28", DownloadRef: "hep-th/9711200"},
		{ID: "1780000", Title: "Untitled"},
	})
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, err := reopened.Get("451647")
	require.NoError(t, err)
	assert.Equal(t, "Large N", rec.Title)
	assert.Equal(t, []string{"Maldacena"}, rec.Authors)
	assert.Equal(t, "hep-th/9711200", rec.Eprint)
	assert.Equal(t, "Adv.Theor.Math.Phys. 2", rec.Venue)
	assert.Equal(t, "1998", rec.Year)
	assert.Equal(t, 1, rec.Seen)
}

func TestUpsertKeepsFirstSeen(t *testing.T) {
	s, _ := openTestStore(t)
	defer s.Close()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	s.now = func() time.Time { return first }
	require.NoError(t, s.write([]paper.Entry{{ID: "1", Title: "old title"}}))
	s.now = func() time.Time { return second }
	require.NoError(t, s.write([]paper.Entry{{ID: "1", Title: "new title"}}))

	rec, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "new title", rec.Title)
	assert.True(t, rec.FirstSeen.Equal(first))
	assert.True(t, rec.LastSeen.Equal(second))
	assert.Equal(t, 2, rec.Seen)
}

func TestGetUnknown(t *testing.T) {
	s, _ := openTestStore(t)
	defer s.Close()

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertAfterCloseIsDropped(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { s.Upsert([]paper.Entry{{ID: "1"}}) })
	assert.NoError(t, s.Close())
}
