// Package redisstore implements the entity store on Redis hashes and index
// keys, sharing the gateway's messaging client.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pluralhub/plural-gateway/internal/messaging"
	"github.com/pluralhub/plural-gateway/internal/store"
)

const (
	keySeq        = "pg:seq"
	keySystems    = "pg:systems"
	keyMembers    = "pg:members"
	keySystem     = "pg:system:%s"          // hash
	keySystemHID  = "pg:system:hid:%s"      // -> system ID
	keySysAccts   = "pg:system:%s:accounts" // set of account IDs
	keySysMembers = "pg:system:%s:members"  // set of member IDs
	keyAccount    = "pg:account:%d"         // -> system ID
	keyMember     = "pg:member:%s"          // hash
	keyMemberHID  = "pg:member:hid:%s"      // -> member ID
)

// RedisStore implements store.Store on a shared Redis client.
type RedisStore struct {
	client *messaging.RedisClient
	rdb    *redis.Client
}

// New creates a RedisStore on top of an existing messaging client.
func New(client *messaging.RedisClient) *RedisStore {
	return &RedisStore{
		client: client,
		rdb:    client.RawClient(),
	}
}

func (s *RedisStore) SystemByAccount(ctx context.Context, accountID uint64) (*store.System, error) {
	id, err := s.rdb.Get(ctx, fmt.Sprintf(keyAccount, accountID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return s.loadSystem(ctx, id)
}

func (s *RedisStore) SystemByHID(ctx context.Context, hid string) (*store.System, error) {
	id, err := s.rdb.Get(ctx, fmt.Sprintf(keySystemHID, hid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("system hid lookup failed: %w", err)
	}
	return s.loadSystem(ctx, id)
}

func (s *RedisStore) MemberByName(ctx context.Context, systemID, name string) (*store.Member, error) {
	ids, err := s.rdb.SMembers(ctx, fmt.Sprintf(keySysMembers, systemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("member listing failed: %w", err)
	}

	// Same-name members are tie-broken on the lowest HID so the lookup is
	// deterministic regardless of set ordering.
	var best *store.Member
	for _, id := range ids {
		mem, err := s.loadMember(ctx, id)
		if err != nil {
			return nil, err
		}
		if mem == nil || mem.Name != name {
			continue
		}
		if best == nil || mem.HID < best.HID {
			best = mem
		}
	}
	return best, nil
}

func (s *RedisStore) MemberByHID(ctx context.Context, hid string) (*store.Member, error) {
	id, err := s.rdb.Get(ctx, fmt.Sprintf(keyMemberHID, hid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("member hid lookup failed: %w", err)
	}
	return s.loadMember(ctx, id)
}

func (s *RedisStore) CreateSystem(ctx context.Context, name string, accountID uint64) (*store.System, error) {
	seq, err := s.rdb.Incr(ctx, keySeq).Result()
	if err != nil {
		return nil, fmt.Errorf("sequence failed: %w", err)
	}
	id := fmt.Sprintf("sys_%d", seq)

	// Claim the account first so two concurrent registrations cannot share
	// one account.
	ok, err := s.rdb.SetNX(ctx, fmt.Sprintf(keyAccount, accountID), id, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("account claim failed: %w", err)
	}
	if !ok {
		return nil, store.ErrAccountLinked
	}

	hid, err := s.claimHID(ctx, keySystemHID, id)
	if err != nil {
		return nil, err
	}

	sys := &store.System{
		ID:       id,
		HID:      hid,
		Name:     name,
		Accounts: []uint64{accountID},
		Created:  time.Now(),
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, fmt.Sprintf(keySystem, id), map[string]interface{}{
		"id":      sys.ID,
		"hid":     sys.HID,
		"name":    sys.Name,
		"tag":     sys.Tag,
		"created": strconv.FormatInt(sys.Created.Unix(), 10),
	})
	pipe.SAdd(ctx, fmt.Sprintf(keySysAccts, id), strconv.FormatUint(accountID, 10))
	pipe.SAdd(ctx, keySystems, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("system write failed: %w", err)
	}
	return sys, nil
}

func (s *RedisStore) LinkAccount(ctx context.Context, systemID string, accountID uint64) error {
	ok, err := s.rdb.SetNX(ctx, fmt.Sprintf(keyAccount, accountID), systemID, 0).Result()
	if err != nil {
		return fmt.Errorf("account claim failed: %w", err)
	}
	if !ok {
		return store.ErrAccountLinked
	}
	return s.rdb.SAdd(ctx, fmt.Sprintf(keySysAccts, systemID), strconv.FormatUint(accountID, 10)).Err()
}

func (s *RedisStore) CreateMember(ctx context.Context, systemID, name string) (*store.Member, error) {
	exists, err := s.rdb.Exists(ctx, fmt.Sprintf(keySystem, systemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("system check failed: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("unknown system: %s", systemID)
	}

	seq, err := s.rdb.Incr(ctx, keySeq).Result()
	if err != nil {
		return nil, fmt.Errorf("sequence failed: %w", err)
	}
	id := fmt.Sprintf("mem_%d", seq)

	hid, err := s.claimHID(ctx, keyMemberHID, id)
	if err != nil {
		return nil, err
	}

	mem := &store.Member{
		ID:       id,
		HID:      hid,
		SystemID: systemID,
		Name:     name,
		Created:  time.Now(),
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, fmt.Sprintf(keyMember, id), map[string]interface{}{
		"id":      mem.ID,
		"hid":     mem.HID,
		"system":  mem.SystemID,
		"name":    mem.Name,
		"avatar":  mem.AvatarURL,
		"created": strconv.FormatInt(mem.Created.Unix(), 10),
	})
	pipe.SAdd(ctx, fmt.Sprintf(keySysMembers, systemID), id)
	pipe.SAdd(ctx, keyMembers, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("member write failed: %w", err)
	}
	return mem, nil
}

func (s *RedisStore) UpdateMember(ctx context.Context, member *store.Member) error {
	key := fmt.Sprintf(keyMember, member.ID)
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("member check failed: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("unknown member: %s", member.ID)
	}
	return s.rdb.HSet(ctx, key, map[string]interface{}{
		"name":   member.Name,
		"avatar": member.AvatarURL,
	}).Err()
}

func (s *RedisStore) MembersBySystem(ctx context.Context, systemID string) ([]*store.Member, error) {
	ids, err := s.rdb.SMembers(ctx, fmt.Sprintf(keySysMembers, systemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("member listing failed: %w", err)
	}
	var out []*store.Member
	for _, id := range ids {
		mem, err := s.loadMember(ctx, id)
		if err != nil {
			return nil, err
		}
		if mem != nil {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (s *RedisStore) Counts(ctx context.Context) (int64, int64, error) {
	systems, err := s.rdb.SCard(ctx, keySystems).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("system count failed: %w", err)
	}
	members, err := s.rdb.SCard(ctx, keyMembers).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("member count failed: %w", err)
	}
	return systems, members, nil
}

func (s *RedisStore) Close() error {
	// The messaging client owns the connection.
	return nil
}

// claimHID generates handles until one is atomically claimed via SETNX.
func (s *RedisStore) claimHID(ctx context.Context, keyPattern, ownerID string) (string, error) {
	for {
		hid := store.NewHID()
		ok, err := s.rdb.SetNX(ctx, fmt.Sprintf(keyPattern, hid), ownerID, 0).Result()
		if err != nil {
			return "", fmt.Errorf("hid claim failed: %w", err)
		}
		if ok {
			return hid, nil
		}
	}
}

func (s *RedisStore) loadSystem(ctx context.Context, id string) (*store.System, error) {
	values, err := s.rdb.HGetAll(ctx, fmt.Sprintf(keySystem, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("system load failed: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	accounts, err := s.rdb.SMembers(ctx, fmt.Sprintf(keySysAccts, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("account listing failed: %w", err)
	}

	sys := &store.System{
		ID:   values["id"],
		HID:  values["hid"],
		Name: values["name"],
		Tag:  values["tag"],
	}
	for _, a := range accounts {
		n, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			continue
		}
		sys.Accounts = append(sys.Accounts, n)
	}
	if created, err := strconv.ParseInt(values["created"], 10, 64); err == nil {
		sys.Created = time.Unix(created, 0)
	}
	return sys, nil
}

func (s *RedisStore) loadMember(ctx context.Context, id string) (*store.Member, error) {
	values, err := s.rdb.HGetAll(ctx, fmt.Sprintf(keyMember, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("member load failed: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	mem := &store.Member{
		ID:        values["id"],
		HID:       values["hid"],
		SystemID:  values["system"],
		Name:      values["name"],
		AvatarURL: values["avatar"],
	}
	if created, err := strconv.ParseInt(values["created"], 10, 64); err == nil {
		mem.Created = time.Unix(created, 0)
	}
	return mem, nil
}
