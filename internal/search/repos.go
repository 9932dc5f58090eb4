package search

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/repostore"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// RepoSource resolves repository metadata. Lookups return
// repostore.ErrNotFound for repositories the store does not know.
type RepoSource interface {
	GetRepoByID(ctx context.Context, id uint32) (*repostore.Repo, error)
	GetRepoByName(ctx context.Context, name string) (*repostore.Repo, error)
}

// repoIdentity keys the resolver cache. The numeric ID is preferred when
// the engine reports one; the ID field is only populated once a
// repository has completed a reindex, so the name fallback is permanent,
// not transitional.
type repoIdentity struct {
	byID bool
	id   uint32
	name string
}

func identityOf(file *zoekt.FileMatch) repoIdentity {
	if file.RepositoryID != nil {
		return repoIdentity{byID: true, id: *file.RepositoryID}
	}
	return repoIdentity{name: file.Repository}
}

// repoResolver accumulates repository metadata over the lifetime of one
// search call. Entries are added lazily on first sight and never evicted;
// the resolver is discarded with the call.
type repoResolver struct {
	source RepoSource

	mu    sync.Mutex
	repos map[repoIdentity]*repostore.Repo
}

func newRepoResolver(source RepoSource) *repoResolver {
	return &repoResolver{
		source: source,
		repos:  make(map[repoIdentity]*repostore.Repo),
	}
}

// resolveChunk looks up every distinct repository identity in the chunk
// that is not already cached, concurrently. Unknown repositories are
// left unresolved (the transformer skips their files); any other lookup
// failure fails the chunk.
func (r *repoResolver) resolveChunk(ctx context.Context, files []zoekt.FileMatch) error {
	r.mu.Lock()
	pending := make([]repoIdentity, 0, len(files))
	seen := make(map[repoIdentity]bool, len(files))
	for i := range files {
		identity := identityOf(&files[i])
		if seen[identity] {
			continue
		}
		seen[identity] = true
		if _, ok := r.repos[identity]; !ok {
			pending = append(pending, identity)
		}
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, identity := range pending {
		g.Go(func() error {
			var repo *repostore.Repo
			var err error
			if identity.byID {
				repo, err = r.source.GetRepoByID(ctx, identity.id)
			} else {
				repo, err = r.source.GetRepoByName(ctx, identity.name)
			}
			if errors.Is(err, repostore.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			r.mu.Lock()
			r.repos[identity] = repo
			r.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// lookup returns the cached metadata for a file's repository, if resolved.
func (r *repoResolver) lookup(file *zoekt.FileMatch) (*repostore.Repo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	repo, ok := r.repos[identityOf(file)]
	return repo, ok
}

// repositoryInfo returns the metadata blocks for every repository
// resolved so far, deduplicated and in stable name order.
func (r *repoResolver) repositoryInfo() []RepositoryInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := make(map[string]RepositoryInfo, len(r.repos))
	for _, repo := range r.repos {
		byName[repo.Name] = RepositoryInfo{
			ID:           repo.ID,
			Name:         repo.Name,
			DisplayName:  repo.DisplayName,
			CodeHostType: repo.CodeHostType,
			WebURL:       repo.WebURL,
		}
	}

	infos := make([]RepositoryInfo, 0, len(byName))
	for _, info := range byName {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
