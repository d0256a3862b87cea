package app

import (
	"sync"

	"github.com/dkeye/portald/internal/domain"
)

// GuildLocks is an arena of per-guild mutexes. Every decision that reads
// and then mutates a guild's portal or category state runs inside that
// guild's critical section; unrelated guilds never contend.
type GuildLocks struct {
	mu    sync.RWMutex
	locks map[domain.GuildID]*sync.Mutex
}

func NewGuildLocks() *GuildLocks {
	return &GuildLocks{locks: make(map[domain.GuildID]*sync.Mutex)}
}

func (g *GuildLocks) get(guild domain.GuildID) *sync.Mutex {
	g.mu.RLock()
	lock, ok := g.locks[guild]
	g.mu.RUnlock()
	if ok {
		return lock
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if lock, ok = g.locks[guild]; ok {
		return lock
	}
	lock = &sync.Mutex{}
	g.locks[guild] = lock
	return lock
}

// Lock enters the guild's critical section and returns the unlock func.
func (g *GuildLocks) Lock(guild domain.GuildID) func() {
	lock := g.get(guild)
	lock.Lock()
	return lock.Unlock
}
