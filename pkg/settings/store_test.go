package settings

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-frappuccino/arctur/pkg/storage"
)

func newSQLiteSettings(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	db := storage.NewStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), db
}

// countingBackend wraps a Backend and counts reads.
type countingBackend struct {
	Backend
	reads atomic.Int32
}

func (c *countingBackend) GetRow(ctx context.Context, t storage.Table, guildID string) (*storage.Row, error) {
	c.reads.Add(1)
	return c.Backend.GetRow(ctx, t, guildID)
}

type failingBackend struct{}

var errDisk = errors.New("disk I/O error")

func (failingBackend) GetRow(context.Context, storage.Table, string) (*storage.Row, error) {
	return nil, errDisk
}
func (failingBackend) InsertRow(context.Context, storage.Table, string, map[string]string, time.Time) (bool, error) {
	return false, errDisk
}
func (failingBackend) UpdateRow(context.Context, storage.Table, string, map[string]string, time.Time) (bool, error) {
	return false, errDisk
}
func (failingBackend) DeleteRow(context.Context, storage.Table, string) (bool, error) {
	return false, errDisk
}

func aboutPayload(text string) Payload {
	return Payload{AboutText: text, AboutAuthor: "111111111111111111"}
}

func TestSetThenGetReturnsRecord(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()

	got, err := store.Get(ctx, "g1", About.Name)
	require.NoError(t, err)
	assert.Nil(t, got)

	created, err := store.Set(ctx, "g1", About.Name, Payload{
		AboutText:      "Welcome!",
		AboutAuthor:    "111111111111111111",
		AboutThumbnail: "https://example.com/t.png",
		AboutColor:     "#FF5733",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", created.Get(AboutText))

	got, err = store.Get(ctx, "g1", About.Name)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Fields, got.Fields)
	assert.Empty(t, got.Get(AboutImage))
}

func TestSetIsCreateOnly(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()

	_, err := store.Set(ctx, "g1", About.Name, aboutPayload("first"))
	require.NoError(t, err)

	_, err = store.Set(ctx, "g1", About.Name, aboutPayload("second"))
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, err := store.Get(ctx, "g1", About.Name)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Get(AboutText))
}

func TestEditTriState(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()

	_, err := store.Set(ctx, "g1", About.Name, Payload{
		AboutText:      "hello",
		AboutAuthor:    "111111111111111111",
		AboutThumbnail: "https://example.com/t.png",
		AboutImage:     "https://example.com/i.png",
		AboutColor:     "#FFF",
	})
	require.NoError(t, err)

	edited, err := store.Edit(ctx, "g1", About.Name, Payload{
		AboutText:      "updated",
		AboutThumbnail: "clear",
		AboutImage:     "   ",
		AboutColor:     "#000000",
	})
	require.NoError(t, err)

	assert.Equal(t, "updated", edited.Get(AboutText))
	assert.Empty(t, edited.Get(AboutThumbnail))
	assert.Equal(t, "https://example.com/i.png", edited.Get(AboutImage))
	assert.Equal(t, "#000000", edited.Get(AboutColor))
	assert.Equal(t, "111111111111111111", edited.Get(AboutAuthor))

	got, err := store.Get(ctx, "g1", About.Name)
	require.NoError(t, err)
	assert.Equal(t, edited.Fields, got.Fields)
}

func TestEditRejectsClearingRequiredField(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()
	_, err := store.Set(ctx, "g1", About.Name, aboutPayload("hello"))
	require.NoError(t, err)

	_, err = store.Edit(ctx, "g1", About.Name, Payload{AboutText: "clear"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, AboutText, ve.Field)

	got, _ := store.Get(ctx, "g1", About.Name)
	assert.Equal(t, "hello", got.Get(AboutText))
}

func TestEditMissingRecord(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	_, err := store.Edit(context.Background(), "g1", About.Name, Payload{AboutText: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClearThenGetReturnsNothing(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()

	_, err := store.Set(ctx, "g1", Announcement.Name, Payload{AnnouncementChannel: "222", AnnouncementSetBy: "333"})
	require.NoError(t, err)
	require.True(t, store.Cached("g1", Announcement.Name))

	require.NoError(t, store.Clear(ctx, "g1", Announcement.Name))
	assert.False(t, store.Cached("g1", Announcement.Name))

	got, err := store.Get(ctx, "g1", Announcement.Name)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.ErrorIs(t, store.Clear(ctx, "g1", Announcement.Name), ErrNotFound)
}

func TestValidationRejectsWithoutWriting(t *testing.T) {
	cases := []struct {
		name    string
		payload Payload
		field   string
	}{
		{"bad url scheme", Payload{AboutText: "x", AboutAuthor: "1", AboutImage: "ftp://example.com/a.png"}, AboutImage},
		{"not a url", Payload{AboutText: "x", AboutAuthor: "1", AboutThumbnail: "not a url"}, AboutThumbnail},
		{"color without hash", Payload{AboutText: "x", AboutAuthor: "1", AboutColor: "FF5733"}, AboutColor},
		{"color wrong length", Payload{AboutText: "x", AboutAuthor: "1", AboutColor: "#FF57"}, AboutColor},
		{"text too long", Payload{AboutText: strings.Repeat("a", 1501), AboutAuthor: "1"}, AboutText},
		{"missing text", Payload{AboutAuthor: "1"}, AboutText},
		{"unknown field", Payload{AboutText: "x", AboutAuthor: "1", "banner": "x"}, "banner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newSQLiteSettings(t)
			_, err := store.Set(context.Background(), "g1", About.Name, tc.payload)
			ve, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tc.field, ve.Field)

			got, err := store.Get(context.Background(), "g1", About.Name)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestShortHexColorAccepted(t *testing.T) {
	assert.True(t, IsValidHexColor("#abc"))
	assert.True(t, IsValidHexColor("#A1B2C3"))
	assert.False(t, IsValidHexColor("#abcd"))
	assert.True(t, IsValidURL("http://example.com"))
	assert.False(t, IsValidURL("https://"))
}

func TestCachedDomainReadsThroughOnce(t *testing.T) {
	db := storage.NewStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })

	backend := &countingBackend{Backend: db}
	store := NewStore(backend)
	ctx := context.Background()

	_, err := db.InsertRow(ctx, storage.AnnouncementTable, "g1", map[string]string{"channel_id": "222", "set_by": "333"}, time.Now())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := store.Get(ctx, "g1", Announcement.Name)
		require.NoError(t, err)
		assert.Equal(t, "222", got.Get(AnnouncementChannel))
	}
	assert.EqualValues(t, 1, backend.reads.Load())

	store.Invalidate("g1", Announcement.Name)
	_, err = store.Get(ctx, "g1", Announcement.Name)
	require.NoError(t, err)
	assert.EqualValues(t, 2, backend.reads.Load())
}

func TestUncachedDomainAlwaysReadsStore(t *testing.T) {
	db := storage.NewStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })

	backend := &countingBackend{Backend: db}
	store := NewStore(backend)
	ctx := context.Background()

	_, err := store.Set(ctx, "g1", GuildConfig.Name, Payload{ConfigModLogChannel: "444"})
	require.NoError(t, err)
	_, _ = store.Get(ctx, "g1", GuildConfig.Name)
	_, _ = store.Get(ctx, "g1", GuildConfig.Name)
	assert.EqualValues(t, 2, backend.reads.Load())
	assert.False(t, store.Cached("g1", GuildConfig.Name))
}

func TestReturnedSettingIsACopy(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()
	_, err := store.Set(ctx, "g1", Announcement.Name, Payload{AnnouncementChannel: "222", AnnouncementSetBy: "333"})
	require.NoError(t, err)

	got, _ := store.Get(ctx, "g1", Announcement.Name)
	got.Fields[AnnouncementChannel] = "999"

	again, _ := store.Get(ctx, "g1", Announcement.Name)
	assert.Equal(t, "222", again.Get(AnnouncementChannel))
}

func TestStorageUnavailable(t *testing.T) {
	ctx := context.Background()

	noBackend := NewStore(nil)
	assert.False(t, noBackend.Available())
	_, err := noBackend.Get(ctx, "g1", About.Name)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	_, err = noBackend.Set(ctx, "g1", About.Name, aboutPayload("x"))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.ErrorIs(t, noBackend.Clear(ctx, "g1", About.Name), ErrStorageUnavailable)

	broken := NewStore(failingBackend{})
	_, err = broken.Get(ctx, "g1", About.Name)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.ErrorIs(t, err, errDisk)
	_, err = broken.Edit(ctx, "g1", About.Name, Payload{AboutText: "x"})
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestUnknownDomain(t *testing.T) {
	store := NewStore(nil)
	_, err := store.Get(context.Background(), "g1", "nope")
	require.ErrorIs(t, err, ErrUnknownDomain)
}

func TestConcurrentWritesKeepCacheCoherent(t *testing.T) {
	store, db := newSQLiteSettings(t)
	ctx := context.Background()
	_, err := store.Set(ctx, "g1", Announcement.Name, Payload{AnnouncementChannel: "1", AnnouncementSetBy: "9"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Edit(ctx, "g1", Announcement.Name, Payload{AnnouncementChannel: string(rune('1' + i%9))})
		}(i)
		go func() {
			defer wg.Done()
			store.Invalidate("g1", Announcement.Name)
			_, _ = store.Get(ctx, "g1", Announcement.Name)
		}()
	}
	wg.Wait()

	cached, err := store.Get(ctx, "g1", Announcement.Name)
	require.NoError(t, err)
	row, err := db.GetRow(ctx, storage.AnnouncementTable, "g1")
	require.NoError(t, err)
	assert.Equal(t, row.Values["channel_id"], cached.Get(AnnouncementChannel))
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	assert.Empty(t, k.locks)
}

func TestUpsertCreatesThenPatches(t *testing.T) {
	store, _ := newSQLiteSettings(t)
	ctx := context.Background()

	created, err := store.Upsert(ctx, "g1", GuildConfig.Name, Payload{ConfigModLogChannel: "123"})
	require.NoError(t, err)
	assert.Equal(t, "123", created.Get(ConfigModLogChannel))

	updated, err := store.Upsert(ctx, "g1", GuildConfig.Name, Payload{ConfigEmbedColor: "#abc"})
	require.NoError(t, err)
	assert.Equal(t, "123", updated.Get(ConfigModLogChannel), "fields not in the payload are kept")
	assert.Equal(t, "#abc", updated.Get(ConfigEmbedColor))

	_, err = store.Upsert(ctx, "g1", GuildConfig.Name, Payload{ConfigModRole: "not-an-id"})
	_, ok := AsValidationError(err)
	assert.True(t, ok)
}
