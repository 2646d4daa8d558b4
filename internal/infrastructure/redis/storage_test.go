package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/infrastructure/redis"
)

func setup(t *testing.T) (*redis.Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := redis.New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStorage_SetGetDelete(t *testing.T) {
	s, mr := setup(t)

	require.NoError(t, s.Set("abc", []byte("datos"), time.Minute))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"abc"), "la clave se guarda con prefijo")

	got, err := s.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("datos"), got)

	require.NoError(t, s.Delete("abc"))
	got, err = s.Get("abc")
	require.NoError(t, err)
	assert.Nil(t, got, "clave ausente devuelve nil sin error")
}

func TestStorage_Expira(t *testing.T) {
	s, mr := setup(t)
	require.NoError(t, s.Set("k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorage_ResetSoloPrefijoPropio(t *testing.T) {
	s, mr := setup(t)
	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, mr.Set("ajena", "x"))

	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists(redis.DefaultPrefix+"a"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"b"))
	assert.True(t, mr.Exists("ajena"), "Reset no toca claves de otros")
}

func TestNew_SinServidor(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := redis.New(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestNewWithClient_PrefijoPersonalizado(t *testing.T) {
	mr := miniredis.RunT(t)
	s := redis.NewWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "t:")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Set("x", []byte("y"), 0))
	assert.True(t, mr.Exists("t:x"))
}
