package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
)

type fakeRecipeStore struct {
	mu      sync.Mutex
	recipes []Recipe
	err     error
	delay   time.Duration
	calls   int
	filters []RecipeFilter
}

func (f *fakeRecipeStore) FindRecipes(ctx context.Context, filter RecipeFilter) ([]Recipe, error) {
	f.mu.Lock()
	f.calls++
	f.filters = append(f.filters, filter)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]Recipe(nil), f.recipes...), nil
}

type fakeVectorStore struct {
	hits  []VectorHit
	err   error
	delay time.Duration
}

func (f *fakeVectorStore) QuerySimilar(ctx context.Context, text string, k int, filter RecipeFilter) ([]VectorHit, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return append([]VectorHit(nil), f.hits[:k]...), nil
	}
	return append([]VectorHit(nil), f.hits...), nil
}

type fakeProfileStore struct {
	profiles map[string]*Profile
	calls    int
	// onGet runs inside GetUserProfile, before the profile is returned.
	onGet func()
}

func (f *fakeProfileStore) GetUserProfile(_ context.Context, userID string) (*Profile, error) {
	f.calls++
	if f.onGet != nil {
		f.onGet()
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperrors.NotFound("user profile")
	}
	return p, nil
}

func recipe(id string, complexity, minutes int, ingredients ...string) Recipe {
	r := Recipe{ID: id, Name: id, Complexity: complexity, PrepTime: minutes / 2, CookTime: minutes - minutes/2}
	for _, ing := range ingredients {
		r.Ingredients = append(r.Ingredients, Ingredient{Name: ing})
	}
	return r
}

func ids(ranked []RankedCandidate) []string {
	out := make([]string, 0, len(ranked))
	for _, rc := range ranked {
		out = append(out, rc.Recipe.ID)
	}
	return out
}
