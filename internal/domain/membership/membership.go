// Package membership answers whether an email belongs to the skool community.
package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/songstudio/studio-api/internal/domain/user"
)

// RedisKey is the set holding allowlisted emails.
const RedisKey = "studio:skool_members"

var ErrStaticMember = errors.New("email is on the static allowlist")

// Set is a mutable allowlist.
type Set interface {
	Contains(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, email string) error
	Remove(ctx context.Context, email string) error
	List(ctx context.Context) ([]string, error)
}

// RedisSet keeps the allowlist in a Redis set shared by all instances.
type RedisSet struct {
	rdb *redis.Client
	key string
}

func NewRedisSet(rdb *redis.Client) *RedisSet {
	return &RedisSet{rdb: rdb, key: RedisKey}
}

func (s *RedisSet) Contains(ctx context.Context, email string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.key, email).Result()
	if err != nil {
		return false, fmt.Errorf("membership sismember: %w", err)
	}
	return ok, nil
}

func (s *RedisSet) Add(ctx context.Context, email string) error {
	if err := s.rdb.SAdd(ctx, s.key, email).Err(); err != nil {
		return fmt.Errorf("membership sadd: %w", err)
	}
	return nil
}

func (s *RedisSet) Remove(ctx context.Context, email string) error {
	if err := s.rdb.SRem(ctx, s.key, email).Err(); err != nil {
		return fmt.Errorf("membership srem: %w", err)
	}
	return nil
}

func (s *RedisSet) List(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("membership smembers: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

// MemorySet is a process-local allowlist used without Redis.
type MemorySet struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

func NewMemorySet() *MemorySet {
	return &MemorySet{members: make(map[string]struct{})}
}

func (s *MemorySet) Contains(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[email]
	return ok, nil
}

func (s *MemorySet) Add(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[email] = struct{}{}
	return nil
}

func (s *MemorySet) Remove(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, email)
	return nil
}

func (s *MemorySet) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.members))
	for email := range s.members {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}

// Service combines the static allowlist from configuration with a mutable set.
// An email is a member if either source has it.
type Service struct {
	static map[string]struct{}
	set    Set
}

func NewService(staticEmails []string, set Set) *Service {
	static := make(map[string]struct{}, len(staticEmails))
	for _, e := range staticEmails {
		if e = user.NormalizeEmail(e); e != "" {
			static[e] = struct{}{}
		}
	}
	if set == nil {
		set = NewMemorySet()
	}
	return &Service{static: static, set: set}
}

// New picks the Redis-backed set when a client is configured.
func New(staticEmails []string, rdb *redis.Client) *Service {
	if rdb != nil {
		return NewService(staticEmails, NewRedisSet(rdb))
	}
	return NewService(staticEmails, NewMemorySet())
}

func (s *Service) IsMember(ctx context.Context, email string) (bool, error) {
	email = user.NormalizeEmail(email)
	if _, ok := s.static[email]; ok {
		return true, nil
	}
	return s.set.Contains(ctx, email)
}

func (s *Service) Add(ctx context.Context, email string) error {
	email, err := user.ParseEmail(email)
	if err != nil {
		return err
	}
	return s.set.Add(ctx, email)
}

// Remove drops an email from the mutable set. Profiles already upgraded keep
// their tier; static entries cannot be removed at runtime.
func (s *Service) Remove(ctx context.Context, email string) error {
	email, err := user.ParseEmail(email)
	if err != nil {
		return err
	}
	if _, ok := s.static[email]; ok {
		return ErrStaticMember
	}
	return s.set.Remove(ctx, email)
}

// List returns static and dynamic members, sorted and de-duplicated.
func (s *Service) List(ctx context.Context) ([]string, error) {
	dynamic, err := s.set.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(dynamic)+len(s.static))
	out := make([]string, 0, len(dynamic)+len(s.static))
	for _, e := range dynamic {
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for e := range s.static {
		if _, ok := seen[e]; !ok {
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out, nil
}
