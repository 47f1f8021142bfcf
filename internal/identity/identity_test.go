package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

type mapDirectory struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (d *mapDirectory) GetUserByQRToken(_ context.Context, token string) (*domain.User, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	user, ok := d.users[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func newDirectory() *mapDirectory {
	return &mapDirectory{users: map[string]*domain.User{
		"qr-zhangsan": {ID: 1, Username: "zhangsan", FullName: "张三", Role: domain.RoleEmployee, IsActive: true},
		"qr-retired":  {ID: 2, Username: "retired", Role: domain.RoleEmployee, IsActive: false},
	}}
}

func TestDirectoryVerifier(t *testing.T) {
	ctx := context.Background()
	directory := newDirectory()
	verifier := NewDirectoryVerifier(directory)

	identity, err := verifier.Resolve(ctx, "qr-zhangsan")
	require.NoError(t, err)
	assert.Equal(t, int64(1), identity.ID)
	assert.Equal(t, "张三", identity.DisplayName())

	t.Run("unknown token", func(t *testing.T) {
		_, err := verifier.Resolve(ctx, "qr-nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("inactive employee", func(t *testing.T) {
		_, err := verifier.Resolve(ctx, "qr-retired")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty token skips the directory", func(t *testing.T) {
		before := directory.calls
		_, err := verifier.Resolve(ctx, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, before, directory.calls)
	})

	t.Run("directory errors are passed through", func(t *testing.T) {
		down := errors.New("connection reset")
		verifier := NewDirectoryVerifier(&mapDirectory{err: down})
		_, err := verifier.Resolve(ctx, "qr-zhangsan")
		assert.ErrorIs(t, err, down)
	})
}

func TestCacheKeyHidesToken(t *testing.T) {
	key := CacheKey("qr-zhangsan")
	assert.NotContains(t, key, "zhangsan")
	assert.Equal(t, key, CacheKey("qr-zhangsan"))
	assert.NotEqual(t, key, CacheKey("qr-lisi"))
}

func TestCachedVerifierWithoutTTLAlwaysAsksDirectory(t *testing.T) {
	ctx := context.Background()
	directory := newDirectory()
	// 不会访问 redis，因此可以传 nil
	verifier := NewCachedVerifier(NewDirectoryVerifier(directory), nil, 0)

	_, err := verifier.Resolve(ctx, "qr-zhangsan")
	require.NoError(t, err)

	directory.users["qr-zhangsan"].IsActive = false
	_, err = verifier.Resolve(ctx, "qr-zhangsan")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 2, directory.calls)
}
