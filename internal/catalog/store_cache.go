package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL = 5 * time.Minute
	versionTTL      = 24 * time.Hour
)

// fillScript stores the entry only if the item's version is still the one
// observed before the inner store was read. KEYS: version, entry.
// ARGV: observed version ("" when absent), payload, ttl ms.
var fillScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	cur = ''
end
if cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// bumpScript invalidates the entry and any fill still in flight.
// KEYS: version, entry. ARGV: version ttl ms.
var bumpScript = redis.NewScript(`
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[1])
redis.call('DEL', KEYS[2])
return 1
`)

// CachedStore is a read-through cache in front of another Store. Every write
// bumps a per-item version after the inner store accepted it; a fill only
// lands if that version did not move while the inner store was being read,
// so a completed write is never shadowed by an older cached value. Redis
// errors are logged and never returned.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, log: log}
}

type cachedItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	CreatedDate time.Time `json:"created_date"`
}

func (s *CachedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *CachedStore) Create(ctx context.Context, it Item) error {
	if err := s.inner.Create(ctx, it); err != nil {
		return err
	}
	s.invalidate(ctx, it.ID)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (Item, bool, error) {
	if it, ok := s.lookup(ctx, id); ok {
		return it, true, nil
	}

	version, versionOK := s.version(ctx, id)

	it, ok, err := s.inner.Get(ctx, id)
	if err != nil || !ok {
		return it, ok, err
	}
	if versionOK {
		s.fill(ctx, it, version)
	}
	return it, true, nil
}

func (s *CachedStore) List(ctx context.Context) ([]Item, error) {
	return s.inner.List(ctx)
}

func (s *CachedStore) Update(ctx context.Context, it Item) error {
	if err := s.inner.Update(ctx, it); err != nil {
		return err
	}
	s.invalidate(ctx, it.ID)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedStore) lookup(ctx context.Context, id string) (Item, bool) {
	data, err := s.client.Get(ctx, itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Item{}, false
	}
	if err != nil {
		s.log.Warn("redis get failed", zap.Error(err), zap.String("id", id))
		return Item{}, false
	}

	it, err := decodeCachedItem(data)
	if err != nil || it.ID != id {
		s.log.Warn("dropping bad cache entry", zap.Error(err), zap.String("id", id))
		s.invalidate(ctx, id)
		return Item{}, false
	}
	return it, true
}

// version returns the item's current write version, "" if it was never
// written through this cache. ok is false when Redis could not answer, in
// which case the caller must not fill.
func (s *CachedStore) version(ctx context.Context, id string) (string, bool) {
	v, err := s.client.Get(ctx, versionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	if err != nil {
		s.log.Warn("redis version read failed", zap.Error(err), zap.String("id", id))
		return "", false
	}
	return v, true
}

func (s *CachedStore) fill(ctx context.Context, it Item, version string) {
	data, err := encodeCachedItem(it)
	if err != nil {
		s.log.Warn("cache marshal failed", zap.Error(err), zap.String("id", it.ID))
		return
	}

	keys := []string{versionKey(it.ID), itemKey(it.ID)}
	stored, err := fillScript.Run(ctx, s.client, keys, version, data, s.ttl.Milliseconds()).Int()
	if err != nil {
		s.log.Warn("redis fill failed", zap.Error(err), zap.String("id", it.ID))
		return
	}
	if stored == 0 {
		s.log.Debug("cache fill skipped, item written meanwhile", zap.String("id", it.ID))
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	keys := []string{versionKey(id), itemKey(id)}
	if err := bumpScript.Run(ctx, s.client, keys, versionTTL.Milliseconds()).Err(); err != nil {
		s.log.Warn("redis invalidate failed", zap.Error(err), zap.String("id", id))
	}
}

// Both keys share a hash tag so the scripts stay in one cluster slot.
func itemKey(id string) string {
	return "item:{" + id + "}"
}

func versionKey(id string) string {
	return "itemver:{" + id + "}"
}

func encodeCachedItem(it Item) ([]byte, error) {
	return json.Marshal(cachedItem{
		ID:          it.ID,
		Name:        it.Name,
		Price:       it.Price.String(),
		CreatedDate: it.CreatedDate,
	})
}

func decodeCachedItem(data []byte) (Item, error) {
	var c cachedItem
	if err := json.Unmarshal(data, &c); err != nil {
		return Item{}, err
	}
	price, err := decimal.NewFromString(c.Price)
	if err != nil {
		return Item{}, err
	}
	return Item{
		ID:          c.ID,
		Name:        c.Name,
		Price:       price,
		CreatedDate: c.CreatedDate.UTC(),
	}, nil
}
