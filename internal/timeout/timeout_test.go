package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regswap/internal/closure"
	"github.com/zjrosen/regswap/internal/engine"
	"github.com/zjrosen/regswap/internal/guard"
	"github.com/zjrosen/regswap/internal/registry"
)

// === Unit Tests: SafeProvider ===

func TestSafeProvider_PassesThrough(t *testing.T) {
	p := SafeProvider(func(ctx context.Context, name string) (any, error) {
		return "value for " + name, nil
	})

	value, err := p(context.Background(), "pkg")
	require.NoError(t, err)
	require.Equal(t, "value for pkg", value)
}

func TestSafeProvider_PassesThroughError(t *testing.T) {
	boom := errors.New("ordinary failure")
	p := SafeProvider(func(ctx context.Context, name string) (any, error) {
		return nil, boom
	})

	_, err := p(context.Background(), "pkg")
	require.True(t, errors.Is(err, boom))
}

func TestSafeProvider_RecoversPanicValue(t *testing.T) {
	p := SafeProvider(func(ctx context.Context, name string) (any, error) {
		panic("loader exploded")
	})

	value, err := p(context.Background(), "pkg")
	require.Error(t, err)
	require.Nil(t, value)
	require.Contains(t, err.Error(), "loader exploded")
	require.Contains(t, err.Error(), `"pkg"`)
}

func TestSafeProvider_RecoversPanicError(t *testing.T) {
	boom := errors.New("panicked error")
	p := SafeProvider(func(ctx context.Context, name string) (any, error) {
		panic(boom)
	})

	_, err := p(context.Background(), "pkg")
	require.True(t, errors.Is(err, boom), "panicking with an error should keep the chain")
}

func TestSafeProvider_EngineSurvivesPanic(t *testing.T) {
	reg := registry.NewInMemory()
	reg.Set("pkg", "orig")
	e := engine.New(reg, closure.NewCache(), guard.New())

	_, err := e.Substitute(context.Background(), "pkg.child",
		SafeProvider(func(ctx context.Context, name string) (any, error) {
			panic("mid-production")
		}))
	require.Error(t, err)

	value, ok := reg.Get("pkg")
	require.True(t, ok)
	require.Equal(t, "orig", value, "registry must be restored after a panicking provider")
}

// === Unit Tests: Enforce ===

func TestEnforce_FastProviderSucceeds(t *testing.T) {
	p := Enforce(func(ctx context.Context, name string) (any, error) {
		return "quick", nil
	}, time.Second)

	value, err := p(context.Background(), "pkg")
	require.NoError(t, err)
	require.Equal(t, "quick", value)
}

func TestEnforce_DeadlineBecomesError(t *testing.T) {
	p := Enforce(func(ctx context.Context, name string) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	}, 10*time.Millisecond)

	_, err := p(context.Background(), "pkg.slow")

	var terr *Error
	require.True(t, errors.As(err, &terr))
	require.Equal(t, "pkg.slow", terr.Name)
	require.GreaterOrEqual(t, terr.Elapsed, 10*time.Millisecond)
	require.True(t, errors.Is(err, context.DeadlineExceeded),
		"timeout errors must match existing deadline handling")
	require.Contains(t, err.Error(), "pkg.slow")
}

func TestEnforce_ProviderErrorUnrelatedToDeadline(t *testing.T) {
	boom := errors.New("not a timeout")
	p := Enforce(func(ctx context.Context, name string) (any, error) {
		return nil, boom
	}, time.Second)

	_, err := p(context.Background(), "pkg")
	require.True(t, errors.Is(err, boom))
	require.False(t, errors.Is(err, context.DeadlineExceeded))
}
