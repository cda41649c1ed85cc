package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrFavoriteNotFound reports a missing favorite for the owner.
var ErrFavoriteNotFound = errors.New("catalog: favorite not found")

// Favorite is a saved try-on result, scoped to the owner who created it.
type Favorite struct {
	ID        string    `json:"id"`
	StyleID   string    `json:"styleId"`
	ResultURL string    `json:"resultUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// Favorites stores saved results per owner. Process-local, like the job
// ownership tracker.
type Favorites struct {
	now func() time.Time

	mu     sync.Mutex
	byUser map[string][]Favorite
}

// NewFavorites builds an empty favorites store.
func NewFavorites() *Favorites {
	return &Favorites{now: time.Now, byUser: make(map[string][]Favorite)}
}

// List returns the owner's favorites, newest first.
func (f *Favorites) List(owner string) []Favorite {
	f.mu.Lock()
	defer f.mu.Unlock()

	saved := f.byUser[owner]
	out := make([]Favorite, len(saved))
	for i, fav := range saved {
		out[len(saved)-1-i] = fav
	}
	return out
}

// Add saves a result for the owner and returns the stored favorite.
func (f *Favorites) Add(owner, styleID, resultURL string) Favorite {
	fav := Favorite{
		ID:        "fav_" + uuid.NewString(),
		StyleID:   styleID,
		ResultURL: resultURL,
		CreatedAt: f.now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[owner] = append(f.byUser[owner], fav)
	return fav
}

// Remove deletes one of the owner's favorites by id.
func (f *Favorites) Remove(owner, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	saved := f.byUser[owner]
	for i, fav := range saved {
		if fav.ID == id {
			f.byUser[owner] = append(saved[:i], saved[i+1:]...)
			if len(f.byUser[owner]) == 0 {
				delete(f.byUser, owner)
			}
			return nil
		}
	}
	return ErrFavoriteNotFound
}
