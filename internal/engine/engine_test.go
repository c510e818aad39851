package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorylens/factorylens/internal/config"
	"github.com/factorylens/factorylens/internal/files"
	"github.com/factorylens/factorylens/internal/model"
	"github.com/factorylens/factorylens/internal/notify"
	"github.com/factorylens/factorylens/internal/watcher"
)

// Test Plan for Engine:
// - Initialize discovers, parses and populates the store, and marks it
//   initialized
// - Initialize applies files in priority order: first definition of a
//   colliding name wins
// - Initialize reports progress through the installed progress func
// - ReindexFile replaces a changed file's contributions (freshness wins)
// - ReindexFile skips files whose recorded mtime is current
// - ReindexFile treats a vanished file as a removal
// - A pure mtime drift (same content, newer mtime) keeps the index as is
// - HandleChanges routes removals and modifications
// - ResolveDocument resolves against the populated index
// - A broken call-identifier list disables resolution and reports an
//   error event, but indexing still works

// writeProject lays out a minimal factory tree and returns its root.
func writeProject(t *testing.T, fileContents map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range fileContents {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func newTestEngine(t *testing.T, root string, mutate func(*config.Config)) (*Engine, *notify.Recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Normalize()
	if mutate != nil {
		mutate(cfg)
	}
	recorder := notify.NewRecorder()
	return New(cfg, files.NewOS(root, cfg.Paths.Ignore), recorder), recorder
}

func TestInitialize_PopulatesStore(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": `factory :user do
  trait :admin do
  end
end
`,
		"spec/factories/posts.rb": `factory :post do
end
`,
	})
	eng, _ := newTestEngine(t, root, nil)

	stats, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Factories)
	assert.Equal(t, 1, stats.Traits)
	assert.True(t, stats.Initialized)

	_, ok := eng.Store().GetFactory("user")
	assert.True(t, ok)
	_, ok = eng.Store().GetTrait("user", "admin")
	assert.True(t, ok)
}

func TestInitialize_PriorityFirstWins(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/primary.rb": `factory :user do
end
`,
		"spec/factories/secondary.rb": `factory :user do
  trait :admin do
  end
end
`,
	})
	eng, _ := newTestEngine(t, root, func(cfg *config.Config) {
		cfg.Paths.Patterns = []string{
			"spec/factories/primary.rb",
			"spec/factories/secondary.rb",
		}
	})

	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	user, ok := eng.Store().GetFactory("user")
	require.True(t, ok)
	assert.Contains(t, user.Location.FileID, "primary.rb")
}

func TestInitialize_ReportsProgress(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/a.rb": "factory :a do\nend\n",
		"spec/factories/b.rb": "factory :b do\nend\n",
	})
	eng, _ := newTestEngine(t, root, nil)

	var seen []int
	eng.SetProgressFunc(func(fileID string, done, total int) {
		assert.Equal(t, 2, total)
		seen = append(seen, done)
	})

	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestReindexFile_ReplacesContributions(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": "factory :user do\nend\n",
	})
	eng, _ := newTestEngine(t, root, nil)
	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	path := filepath.Join(root, "spec", "factories", "users.rb")
	require.NoError(t, os.WriteFile(path, []byte("factory :account do\nend\n"), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, eng.ReindexFile(context.Background(), path))

	_, ok := eng.Store().GetFactory("user")
	assert.False(t, ok)
	_, ok = eng.Store().GetFactory("account")
	assert.True(t, ok)
}

func TestReindexFile_SkipsCurrentMtime(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": "factory :user do\nend\n",
	})
	eng, _ := newTestEngine(t, root, nil)
	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	path := filepath.Join(root, "spec", "factories", "users.rb")
	require.NoError(t, eng.ReindexFile(context.Background(), path))

	_, ok := eng.Store().GetFactory("user")
	assert.True(t, ok)
}

func TestReindexFile_VanishedFileRemoved(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": "factory :user do\nend\n",
	})
	eng, _ := newTestEngine(t, root, nil)
	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	path := filepath.Join(root, "spec", "factories", "users.rb")
	require.NoError(t, os.Remove(path))

	require.NoError(t, eng.ReindexFile(context.Background(), path))

	_, ok := eng.Store().GetFactory("user")
	assert.False(t, ok)
	assert.Equal(t, 0, eng.Stats().Files)
}

func TestReindexFile_MtimeDriftKeepsIndex(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": "factory :user do\nend\n",
	})
	eng, _ := newTestEngine(t, root, nil)
	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	// Same content, newer mtime.
	path := filepath.Join(root, "spec", "factories", "users.rb")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, eng.ReindexFile(context.Background(), path))

	_, ok := eng.Store().GetFactory("user")
	assert.True(t, ok)
	// The drift was absorbed: the recorded mtime is now current.
	assert.False(t, eng.Store().ShouldReindex(path, future))
}

func TestHandleChanges_RoutesKinds(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": "factory :user do\nend\n",
		"spec/factories/posts.rb": "factory :post do\nend\n",
	})
	eng, _ := newTestEngine(t, root, nil)
	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	usersPath := filepath.Join(root, "spec", "factories", "users.rb")
	postsPath := filepath.Join(root, "spec", "factories", "posts.rb")

	require.NoError(t, os.WriteFile(postsPath, []byte("factory :article do\nend\n"), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(postsPath, future, future))

	eng.HandleChanges(context.Background(), []watcher.Change{
		{Path: usersPath, Kind: watcher.Removed},
		{Path: postsPath, Kind: watcher.Modified},
	})

	_, ok := eng.Store().GetFactory("user")
	assert.False(t, ok)
	_, ok = eng.Store().GetFactory("post")
	assert.False(t, ok)
	_, ok = eng.Store().GetFactory("article")
	assert.True(t, ok)
}

func TestResolveDocument_EndToEnd(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": `factory :user do
  trait :admin do
  end
end
`,
	})
	eng, _ := newTestEngine(t, root, nil)
	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	refs := eng.ResolveDocument("u = create(:user, :admin)\n")

	require.Len(t, refs, 2)
	assert.Equal(t, model.FactoryReference, refs[0].Kind)
	assert.Equal(t, 0, refs[0].Target.Line)
	assert.Equal(t, model.TraitReference, refs[1].Kind)
	assert.Equal(t, 1, refs[1].Target.Line)
}

func TestNew_BrokenIdentifiersDisableResolutionOnly(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"spec/factories/users.rb": "factory :user do\nend\n",
	})
	eng, recorder := newTestEngine(t, root, func(cfg *config.Config) {
		cfg.Resolver.CallIdentifiers = []string{"cre ate"}
	})

	require.NotEmpty(t, recorder.EventsAt(notify.LevelError))

	_, err := eng.Initialize(context.Background())
	require.NoError(t, err)

	_, ok := eng.Store().GetFactory("user")
	assert.True(t, ok)
	assert.Empty(t, eng.ResolveDocument("create(:user)"))
}
