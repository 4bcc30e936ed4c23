package realtime

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"ember/internal/middleware"
	"ember/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey      = "ws:online_users"
	lastSeenKeyPrefix   = "ws:last_seen:"
	defaultLastSeenTTL  = 90 * time.Second
	defaultOfflineGrace = 5 * time.Second
	defaultReapInterval = 60 * time.Second
)

// PresenceOptions tunes presence timing. Zero values use the defaults.
type PresenceOptions struct {
	LastSeenTTL   time.Duration
	OfflineGrace  time.Duration
	ReapInterval  time.Duration
	OnOnline      func(userID uint)
	OnOffline     func(userID uint)
	DisableReaper bool
}

// Presence tracks which users hold an identified session. Local session
// counts are authoritative for this process; Redis carries presence across
// processes with a last-seen TTL so crashed processes age out.
type Presence struct {
	rdb  *redis.Client
	opts PresenceOptions

	mu       sync.Mutex
	local    map[uint]int
	pending  map[uint]*time.Timer
	notified map[uint]bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewPresence starts a presence tracker. rdb may be nil, in which case only
// local sessions count.
func NewPresence(rdb *redis.Client, opts PresenceOptions) *Presence {
	if opts.LastSeenTTL <= 0 {
		opts.LastSeenTTL = defaultLastSeenTTL
	}
	if opts.OfflineGrace <= 0 {
		opts.OfflineGrace = defaultOfflineGrace
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = defaultReapInterval
	}
	p := &Presence{
		rdb:      rdb,
		opts:     opts,
		local:    make(map[uint]int),
		pending:  make(map[uint]*time.Timer),
		notified: make(map[uint]bool),
		stop:     make(chan struct{}),
	}
	if rdb != nil && !opts.DisableReaper {
		go p.reapLoop()
	}
	return p
}

// Join counts a new identified session for userID.
func (p *Presence) Join(ctx context.Context, userID uint) {
	wasOnline := p.IsOnline(ctx, userID)

	p.mu.Lock()
	if t, ok := p.pending[userID]; ok {
		t.Stop()
		delete(p.pending, userID)
	}
	p.local[userID]++
	p.notified[userID] = false
	p.updateGauge()
	p.mu.Unlock()

	p.Touch(ctx, userID)
	if !wasOnline && p.opts.OnOnline != nil {
		p.opts.OnOnline(userID)
	}
}

// Touch refreshes userID's last-seen mark in Redis.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, onlineUsersKey, userKey(userID))
		pipe.SetEx(ctx, lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), p.opts.LastSeenTTL)
		return nil
	})
	if err != nil {
		middleware.RedisErrors.WithLabelValues("presence_touch").Inc()
		middleware.Logger.WarnContext(ctx, "presence touch failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

// Leave drops one session of userID. The user goes offline after the grace
// period unless a session joins again in between.
func (p *Presence) Leave(userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := p.local[userID]; n > 1 {
		p.local[userID] = n - 1
		return
	}
	delete(p.local, userID)
	p.updateGauge()

	if t, ok := p.pending[userID]; ok {
		t.Stop()
	}
	p.pending[userID] = time.AfterFunc(p.opts.OfflineGrace, func() {
		p.finalize(context.Background(), userID)
	})
}

// IsOnline reports whether userID has a session here or a fresh last-seen
// mark from any process.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	p.mu.Lock()
	n := p.local[userID]
	p.mu.Unlock()
	if n > 0 {
		return true
	}
	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result()
	return err == nil && exists > 0
}

// OnlineUserIDs lists users online anywhere, dropping stale set members.
func (p *Presence) OnlineUserIDs(ctx context.Context) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	add := func(id uint) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	p.mu.Lock()
	for id, n := range p.local {
		if n > 0 {
			add(id)
		}
	}
	p.mu.Unlock()

	for _, id := range p.sweep(ctx) {
		add(id)
	}
	return ids
}

// Stop halts the reaper and cancels pending offline transitions.
func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		for id, t := range p.pending {
			t.Stop()
			delete(p.pending, id)
		}
		p.mu.Unlock()
	})
}

// sweep removes set members whose last-seen key expired and returns the
// members still alive.
func (p *Presence) sweep(ctx context.Context) []uint {
	if p.rdb == nil {
		return nil
	}
	members, err := p.rdb.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		middleware.RedisErrors.WithLabelValues("presence_members").Inc()
		return nil
	}

	alive := make([]uint, 0, len(members))
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		userID := uint(id)
		exists, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result()
		if err != nil {
			continue
		}
		if exists > 0 {
			alive = append(alive, userID)
			continue
		}

		_ = p.rdb.SRem(ctx, onlineUsersKey, raw).Err()
		p.mu.Lock()
		hasLocal := p.local[userID] > 0
		p.mu.Unlock()
		if !hasLocal {
			p.emitOffline(userID)
		}
	}
	return alive
}

func (p *Presence) reapLoop() {
	ticker := time.NewTicker(p.opts.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweep(context.Background())
		}
	}
}

func (p *Presence) finalize(ctx context.Context, userID uint) {
	p.mu.Lock()
	delete(p.pending, userID)
	hasLocal := p.local[userID] > 0
	p.mu.Unlock()
	if hasLocal {
		return
	}

	if p.rdb != nil {
		exists, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result()
		if err == nil && exists > 0 {
			// refreshed by another process
			return
		}
		_ = p.rdb.SRem(ctx, onlineUsersKey, userKey(userID)).Err()
	}
	p.emitOffline(userID)
}

func (p *Presence) emitOffline(userID uint) {
	p.mu.Lock()
	if p.notified[userID] {
		p.mu.Unlock()
		return
	}
	p.notified[userID] = true
	p.mu.Unlock()

	if p.opts.OnOffline != nil {
		p.opts.OnOffline(userID)
	}
}

// updateGauge must be called with mu held.
func (p *Presence) updateGauge() {
	observability.OnlineUsers.Set(float64(len(p.local)))
}

func userKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

func lastSeenKey(userID uint) string {
	return lastSeenKeyPrefix + userKey(userID)
}
