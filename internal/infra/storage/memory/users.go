package memory

import (
	"context"
	"strings"
	"sync"

	domainuser "talenthub/internal/domain/user"
)

// UserDirectory is an in-memory stand-in for the external user service.
type UserDirectory struct {
	mu   sync.RWMutex
	byID map[domainuser.ID]*domainuser.Profile
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{byID: make(map[domainuser.ID]*domainuser.Profile)}
}

func (d *UserDirectory) Add(profile domainuser.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	profile.Role = domainuser.NormalizeRole(profile.Role)
	d.byID[profile.ID] = &profile
}

func (d *UserDirectory) FindUser(ctx context.Context, id domainuser.ID) (*domainuser.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	profile, ok := d.byID[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (d *UserDirectory) Search(ctx context.Context, q string) ([]*domainuser.Profile, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*domainuser.Profile, 0)
	if q == "" {
		return out, nil
	}
	for _, profile := range d.byID {
		if strings.Contains(strings.ToLower(profile.DisplayName), q) ||
			strings.Contains(strings.ToLower(profile.Email), q) {
			clone := *profile
			out = append(out, &clone)
		}
	}
	return out, nil
}

var _ domainuser.Directory = (*UserDirectory)(nil)
