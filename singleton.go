package pool

import (
	"sync"
	"unsafe"

	"github.com/prataprc/chunkpool/api"
	"github.com/prataprc/chunkpool/syncmutex"
)

// Key identifies a shared Pool inside a Registry. Two calls to GetPool
// with equal Keys always observe the same underlying Pool; distinct
// Keys always get distinct Pools, even if RequestedSize happens to
// match, which is what Tag is for.
type Key struct {
	// Tag lets otherwise identical (RequestedSize, NextSize, MaxSize)
	// requests fall into separate pools, mirroring the phantom Tag
	// template parameter singleton_pool uses to keep unrelated callers
	// from ever sharing storage.
	Tag           string
	RequestedSize int64
	NextSize      int64
	MaxSize       int64
}

// SingletonPool is a Registry entry: a Pool guarded by a Mutex so many
// goroutines can share it safely, since Pool itself is not
// synchronized.
type SingletonPool struct {
	mu   syncmutex.Mutex
	pool *Pool
}

// Malloc is Pool.Malloc, synchronized.
func (sp *SingletonPool) Malloc() (p unsafe.Pointer) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.Malloc()
}

// OrderedMalloc is Pool.OrderedMalloc, synchronized.
func (sp *SingletonPool) OrderedMalloc() unsafe.Pointer {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.OrderedMalloc()
}

// Free is Pool.Free, synchronized.
func (sp *SingletonPool) Free(chunk unsafe.Pointer) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.pool.Free(chunk)
}

// OrderedFree is Pool.OrderedFree, synchronized.
func (sp *SingletonPool) OrderedFree(chunk unsafe.Pointer) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.pool.OrderedFree(chunk)
}

// MallocN is Pool.MallocN, synchronized.
func (sp *SingletonPool) MallocN(n int64) unsafe.Pointer {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.MallocN(n)
}

// FreeN is Pool.FreeN, synchronized.
func (sp *SingletonPool) FreeN(chunks unsafe.Pointer, n int64) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.pool.FreeN(chunks, n)
}

// OrderedFreeN is Pool.OrderedFreeN, synchronized.
func (sp *SingletonPool) OrderedFreeN(chunks unsafe.Pointer, n int64) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.pool.OrderedFreeN(chunks, n)
}

// MaxSize is Pool.MaxSize, synchronized.
func (sp *SingletonPool) MaxSize() int64 {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.MaxSize()
}

// IsFrom is Pool.IsFrom, synchronized.
func (sp *SingletonPool) IsFrom(chunk unsafe.Pointer) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.IsFrom(chunk)
}

// ReleaseMemory is Pool.ReleaseMemory, synchronized.
func (sp *SingletonPool) ReleaseMemory() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.ReleaseMemory()
}

// PurgeMemory is Pool.PurgeMemory, synchronized.
func (sp *SingletonPool) PurgeMemory() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.pool.PurgeMemory()
}

// Registry hands out one shared *SingletonPool per Key, constructing it
// lazily on first request and reusing it on every subsequent one. This
// stands in for the static-initialization-order guarantees a C++
// singleton_pool template instantiation gets for free: Go has no
// equivalent static storage per template instantiation, so a Registry
// keyed by value takes its place explicitly.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*SingletonPool

	newMutex  func() syncmutex.Mutex
	userAlloc api.UserAllocator
	log       api.Logger
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*Registry)

// WithRegistryMutex sets the mutex policy new SingletonPool entries are
// built with. The default is syncmutex.NewProcessMutex.
func WithRegistryMutex(newMutex func() syncmutex.Mutex) RegistryOption {
	return func(r *Registry) { r.newMutex = newMutex }
}

// WithRegistryFileLock configures a Registry so every SingletonPool it
// constructs from here on synchronizes across separate processes,
// rather than only across goroutines within one, using a
// syncmutex.RWMutex flocked against path. All entries built by this
// Registry share the same file, so callers that need per-Key
// cross-process isolation should run one Registry per path. GetPool
// panics if path cannot be opened when it builds a new entry, the same
// way NewPool panics on a bad construction argument.
func WithRegistryFileLock(path string) RegistryOption {
	return func(r *Registry) {
		r.newMutex = func() syncmutex.Mutex {
			m, err := syncmutex.New(path)
			if err != nil {
				panic(err)
			}
			return m
		}
	}
}

// WithRegistryUserAllocator sets the UserAllocator every Pool the
// Registry constructs will use.
func WithRegistryUserAllocator(ua api.UserAllocator) RegistryOption {
	return func(r *Registry) { r.userAlloc = ua }
}

// WithRegistryLogger sets the logger every Pool the Registry constructs
// will use.
func WithRegistryLogger(l api.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{entries: make(map[Key]*SingletonPool)}
	for _, opt := range opts {
		opt(r)
	}
	if r.newMutex == nil {
		r.newMutex = syncmutex.NewProcessMutex
	}
	return r
}

// GetPool returns the SingletonPool for key, constructing and caching
// one on the first call for that key.
func (r *Registry) GetPool(key Key) *SingletonPool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sp, ok := r.entries[key]; ok {
		return sp
	}

	var opts []Option
	if r.userAlloc != nil {
		opts = append(opts, WithUserAllocator(r.userAlloc))
	}
	if key.NextSize > 0 {
		opts = append(opts, WithNextSize(key.NextSize))
	}
	if key.MaxSize > 0 {
		opts = append(opts, WithMaxSize(key.MaxSize))
	}
	if r.log != nil {
		opts = append(opts, WithLogger(r.log))
	}
	sp := &SingletonPool{mu: r.newMutex(), pool: NewPool(key.RequestedSize, opts...)}
	r.entries[key] = sp
	return sp
}
