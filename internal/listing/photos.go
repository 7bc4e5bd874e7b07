package listing

import (
	"errors"
	"fmt"
)

// ErrBadPhotoOrder marks a reorder payload that is not an exact permutation
// of the listing's current photo IDs.
var ErrBadPhotoOrder = errors.New("bad photo order")

// Renumber rewrites sort orders to exactly 0..N-1 in sequence order. Every
// photo mutation runs through it before anything is written back.
func Renumber(photos []Photo) []Photo {
	for i := range photos {
		photos[i].SortOrder = i
	}
	return photos
}

// Reorder arranges photos into the order given by IDs. The ID list must
// reference each current photo exactly once.
func Reorder(photos []Photo, orderedIDs []string) ([]Photo, error) {
	if len(orderedIDs) != len(photos) {
		return nil, fmt.Errorf("%w: order lists %d photos, listing has %d", ErrBadPhotoOrder, len(orderedIDs), len(photos))
	}

	byID := make(map[string]Photo, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	reordered := make([]Photo, 0, len(photos))
	for _, id := range orderedIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown or repeated photo id %q", ErrBadPhotoOrder, id)
		}
		delete(byID, id)
		reordered = append(reordered, p)
	}

	return Renumber(reordered), nil
}

// RemovePhoto drops the photo with the given id, returning the removed entry
// so the caller can release its blob, and the remaining photos renumbered.
func RemovePhoto(photos []Photo, photoID string) ([]Photo, Photo, bool) {
	for i, p := range photos {
		if p.ID == photoID {
			remaining := make([]Photo, 0, len(photos)-1)
			remaining = append(remaining, photos[:i]...)
			remaining = append(remaining, photos[i+1:]...)
			return Renumber(remaining), p, true
		}
	}
	return photos, Photo{}, false
}
