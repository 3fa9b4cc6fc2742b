package datasync

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/content"
	"github.com/CreativeUnicorns/navsync/notify"
	"github.com/CreativeUnicorns/navsync/remote"
	"github.com/CreativeUnicorns/navsync/retry"
	"github.com/CreativeUnicorns/navsync/storage"
)

type backupFixture struct {
	store *remote.MemoryStore
	repo  *content.Repository
	local *storage.MemoryStorage
	coord *Coordinator
	sent  *countingNotifier
	now   *time.Time
}

func newBackupFixture(t *testing.T, opts ...Option) *backupFixture {
	t.Helper()
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := &backupFixture{
		store: remote.NewMemoryStore(remote.WithMemoryClock(clock)),
		local: storage.NewMemoryStorage(),
		now:   &now,
	}
	h := apperror.NewHandler(apperror.WithLogger(navsync.NopLogger{}))
	engine := retry.New(append(retry.RemoteStorePreset(),
		retry.WithLogger(navsync.NopLogger{}),
		retry.WithHandler(h),
		retry.WithHandleOptions(apperror.Silent()),
		retry.WithSleeper(noSleep),
	)...)
	f.repo = content.NewRepository(f.store,
		content.WithLocalStore(f.local),
		content.WithRetry(engine),
		content.WithHandler(h),
		content.WithLogger(navsync.NopLogger{}),
		content.WithClock(clock),
	)
	f.coord, f.sent = newTestCoordinator(t, f.repo, append([]Option{
		WithLocalStore(f.local),
		WithCache(f.repo.Cache()),
		WithClock(clock),
	}, opts...)...)
	return f
}

func (f *backupFixture) seed(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	_, err = f.store.CreateFile(context.Background(), path, string(data), "seed")
	require.NoError(t, err)
}

func (f *backupFixture) remoteState(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, path := range []string{navsync.NavigationFile, navsync.SiteFile, navsync.ResourcesFile} {
		raw, err := f.store.GetFileContent(context.Background(), path)
		require.NoError(t, err)
		out[path] = raw
	}
	return out
}

func seedAll(t *testing.T, f *backupFixture) {
	t.Helper()
	site := navsync.DefaultSiteConfig()
	site.Basic.Author = "ops"
	f.seed(t, navsync.NavigationFile, navsync.DefaultNavigation())
	f.seed(t, navsync.SiteFile, site)
	f.seed(t, navsync.ResourcesFile, []navsync.ResourceSection{{ID: "r", Title: "Tools", Items: []navsync.ResourceItem{{Title: "Go", URL: "https://go.dev"}}}})
}

func TestBackup_RestoreRoundTrip(t *testing.T) {
	f := newBackupFixture(t)
	ctx := context.Background()
	seedAll(t, f)
	before := f.remoteState(t)

	snap, err := f.coord.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, navsync.DefaultNavigation(), snap.Navigation)

	backups, err := f.coord.ListLocalBackups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, fmt.Sprintf("backup_%d", f.now.UnixMilli()), backups[0].Key)
	assert.Equal(t, f.now.UnixMilli(), backups[0].Timestamp.UnixMilli())
	assert.False(t, backups[0].Encrypted)
	assert.Positive(t, backups[0].Size)

	require.NoError(t, f.repo.UpdateNavigation(ctx, []navsync.NavigationCategory{}))
	require.NoError(t, f.repo.UpdateResources(ctx, nil))
	assert.NotEqual(t, before, f.remoteState(t))

	require.NoError(t, f.coord.RestoreLocalBackup(ctx, backups[0].Key))
	assert.Equal(t, before, f.remoteState(t))
	assert.Equal(t, StateIdle, f.coord.State())

	nav, err := f.repo.Navigation(ctx)
	require.NoError(t, err)
	assert.Equal(t, navsync.DefaultNavigation(), nav)
}

func TestBackup_PrunesToNewest(t *testing.T) {
	f := newBackupFixture(t)
	ctx := context.Background()
	seedAll(t, f)

	var keys []string
	for i := 0; i < MaxBackups+2; i++ {
		*f.now = f.now.Add(time.Second)
		_, err := f.coord.CreateBackup(ctx)
		require.NoError(t, err)
		keys = append(keys, fmt.Sprintf("backup_%d", f.now.UnixMilli()))
	}

	backups, err := f.coord.ListLocalBackups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	for i, b := range backups {
		assert.Equal(t, keys[i+2], b.Key)
	}
	_, err = f.local.Get(ctx, keys[0])
	assert.ErrorIs(t, err, navsync.ErrKeyNotFound)
}

func TestBackup_IgnoresForeignKeys(t *testing.T) {
	f := newBackupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.local.Set(ctx, "backup_notes", "keep me"))

	backups, err := f.coord.ListLocalBackups(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackup_Encrypted(t *testing.T) {
	sealer, err := navsync.NewEncryptionAdapterWithKey([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	f := newBackupFixture(t, WithEncrypter(sealer))
	ctx := context.Background()
	seedAll(t, f)
	before := f.remoteState(t)

	_, err = f.coord.CreateBackup(ctx)
	require.NoError(t, err)
	backups, err := f.coord.ListLocalBackups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.True(t, backups[0].Encrypted)

	raw, err := f.local.Get(ctx, backups[0].Key)
	require.NoError(t, err)
	assert.NotContains(t, raw, "getting-started")

	require.NoError(t, f.repo.UpdateNavigation(ctx, []navsync.NavigationCategory{}))
	require.NoError(t, f.coord.RestoreLocalBackup(ctx, backups[0].Key))
	assert.Equal(t, before, f.remoteState(t))

	plain, _ := newTestCoordinator(t, f.repo, WithLocalStore(f.local))
	err = plain.RestoreLocalBackup(ctx, backups[0].Key)
	assert.ErrorIs(t, err, navsync.ErrInvalidInput)
}

func TestBackup_RestoreMissing(t *testing.T) {
	f := newBackupFixture(t)

	err := f.coord.RestoreLocalBackup(context.Background(), "backup_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackupNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, 1, f.coord.Handler().Stats().ByCode[apperror.KindNotFound])
}

func TestBackup_CreateFailureIsClassified(t *testing.T) {
	f := newBackupFixture(t)
	f.store.SetFault(func(op, _ string) error {
		if op == remote.OpGet {
			return navsync.ErrUnauthorized
		}
		return nil
	})

	_, err := f.coord.CreateBackup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, navsync.ErrUnauthorized)
	assert.Equal(t, apperror.KindAuth, apperror.KindOf(err))

	backups, err := f.coord.ListLocalBackups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backups)
	assert.Contains(t, f.sent.get(notify.LevelError), "Backup failed")
	assert.Empty(t, f.sent.get(notify.LevelSuccess))
}

func TestBackup_RestoreWhileCheckRunsIsHandled(t *testing.T) {
	src := newStubSource()
	src.stale["navigation"] = true
	c, _ := newTestCoordinator(t, src)
	ctx := context.Background()

	_, err := c.CreateBackup(ctx)
	require.NoError(t, err)
	backups, err := c.ListLocalBackups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	src.block = make(chan struct{})
	src.started = make(chan struct{}, 1)
	done := make(chan bool)
	go func() { done <- c.CheckSync(ctx) }()
	<-src.started

	err = c.RestoreLocalBackup(ctx, backups[0].Key)
	close(src.block)
	<-done

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	var ae *apperror.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Restore backup", ae.Context)
	assert.Len(t, src.restored, 1)
	assert.Equal(t, 1, c.Handler().Stats().Total)
}

func TestBackup_RestoreThenForceSyncFailure(t *testing.T) {
	f := newBackupFixture(t)
	ctx := context.Background()
	seedAll(t, f)
	_, err := f.coord.CreateBackup(ctx)
	require.NoError(t, err)
	backups, err := f.coord.ListLocalBackups(ctx)
	require.NoError(t, err)

	f.store.SetFault(func(op, _ string) error {
		if op == remote.OpGet {
			return navsync.ErrForbidden
		}
		return nil
	})
	err = f.coord.RestoreLocalBackup(ctx, backups[0].Key)
	assert.ErrorIs(t, err, navsync.ErrForbidden)
	assert.Equal(t, StateIdle, f.coord.State())
}
