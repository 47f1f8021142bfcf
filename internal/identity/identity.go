// Package identity 把扫码得到的不透明令牌解析为员工身份，令牌只作为查找键使用，不解析其内容
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

// Directory 是员工目录，repository.Repository 实现了它
type Directory interface {
	GetUserByQRToken(ctx context.Context, token string) (*domain.User, error)
}

type DirectoryVerifier struct {
	directory Directory
}

func NewDirectoryVerifier(directory Directory) *DirectoryVerifier {
	return &DirectoryVerifier{directory: directory}
}

func (v *DirectoryVerifier) Resolve(ctx context.Context, token string) (*domain.EmployeeIdentity, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}

	user, err := v.directory.GetUserByQRToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrNotFound
	}

	return user.Identity(), nil
}

type Verifier interface {
	Resolve(ctx context.Context, token string) (*domain.EmployeeIdentity, error)
}

// CachedVerifier 在 redis 中短暂缓存解析成功的结果，找不到的令牌不缓存，redis 出错时直接查询目录。
// 命中缓存时不再检查账户是否停用，停用最多延迟 ttl 才对扫码生效；ttl 不大于 0 时不使用缓存
type CachedVerifier struct {
	next   Verifier
	client *redis.Client
	ttl    time.Duration
}

func NewCachedVerifier(next Verifier, client *redis.Client, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

// CacheKey 只保存令牌的哈希，redis 中不出现明文令牌
func CacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity_" + hex.EncodeToString(sum[:])
}

func (v *CachedVerifier) Resolve(ctx context.Context, token string) (*domain.EmployeeIdentity, error) {
	if v.ttl <= 0 || token == "" {
		return v.next.Resolve(ctx, token)
	}

	key := CacheKey(token)

	cached, err := v.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		identity := &domain.EmployeeIdentity{}
		if err := json.Unmarshal(cached, identity); err == nil {
			return identity, nil
		}
		slog.Warn("无法解析缓存的员工身份", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("无法读取员工身份缓存", "error", err)
	}

	identity, err := v.next.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(identity); err == nil {
		if err := v.client.Set(ctx, key, encoded, v.ttl).Err(); err != nil {
			slog.Warn("无法写入员工身份缓存", "error", err)
		}
	}

	return identity, nil
}

// Invalidate 在令牌被重新生成后调用
func (v *CachedVerifier) Invalidate(ctx context.Context, token string) error {
	return v.client.Del(ctx, CacheKey(token)).Err()
}
