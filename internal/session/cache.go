package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/product"
)

// ErrReferenceNotLoaded is returned by forms that need doctor and product
// pickers before the reference data has been fetched.
var ErrReferenceNotLoaded = errors.New("reference data not loaded")

// loadTimeout bounds a shared load, which no longer follows any one
// caller's cancellation.
const loadTimeout = 30 * time.Second

type Reference = domain.Reference[doctor.Doctor, product.Product]

type ReferenceLoader func(ctx context.Context) (*Reference, error)

// ReferenceCache holds the doctors and products of one session. It is
// filled once; concurrent loaders share a single upstream call.
type ReferenceCache struct {
	group singleflight.Group

	mu       sync.RWMutex
	data     Reference
	doctors  map[string]doctor.Doctor
	products map[string]product.Product
	loaded   bool
	version  uint64
}

func NewReferenceCache() *ReferenceCache {
	return &ReferenceCache{}
}

func (c *ReferenceCache) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Get returns the cached data and whether it has been loaded.
func (c *ReferenceCache) Get() (Reference, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.loaded
}

// Load returns the cached data, calling load only when nothing is cached.
// The shared call outlives a caller that gives up; the others still get
// its result.
func (c *ReferenceCache) Load(ctx context.Context, load ReferenceLoader) (Reference, error) {
	if ref, ok := c.Get(); ok {
		return ref, nil
	}

	c.mu.RLock()
	version := c.version
	c.mu.RUnlock()

	ch := c.group.DoChan("reference", func() (any, error) {
		if ref, ok := c.Get(); ok {
			return ref, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		ref, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.store(ref, version)
		return *ref, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Reference{}, res.Err
		}
		return res.Val.(Reference), nil
	case <-ctx.Done():
		return Reference{}, ctx.Err()
	}
}

func (c *ReferenceCache) store(ref *Reference, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// invalidated while loading: the data may predate the change
	if c.version != version {
		return
	}
	c.data = *ref
	if c.data.Doctors == nil {
		c.data.Doctors = []doctor.Doctor{}
	}
	if c.data.Products == nil {
		c.data.Products = []product.Product{}
	}
	c.doctors = make(map[string]doctor.Doctor, len(ref.Doctors))
	for _, d := range ref.Doctors {
		c.doctors[d.ID] = d
	}
	c.products = make(map[string]product.Product, len(ref.Products))
	for _, p := range ref.Products {
		c.products[p.ID] = p
	}
	c.loaded = true
}

// Invalidate drops the cached data; the next Load fetches again.
func (c *ReferenceCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.data = Reference{}
	c.doctors = nil
	c.products = nil
	c.loaded = false
	c.group.Forget("reference")
}

func (c *ReferenceCache) Doctor(id string) (doctor.Doctor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.doctors[id]
	return d, ok
}

func (c *ReferenceCache) Product(id string) (product.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}
