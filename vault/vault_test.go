package vault

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int `json:"count"`
}

func openVault(t *testing.T, store kv.Store, legacy bool) *Vault {
	t.Helper()
	v, err := Open(context.Background(), store, Options{LegacyPlaintext: legacy, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return v
}

func TestOpenCreatesKeyOnce(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()

	openVault(t, store, false)
	first, err := store.Get(ctx, KeyName)
	require.NoError(t, err)
	raw, err := hex.DecodeString(string(first))
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	openVault(t, store, false)
	second, err := store.Get(ctx, KeyName)
	require.NoError(t, err)
	assert.Equal(t, first, second, "key must be generated only once")
}

func TestPutGetRoundTrip(t *testing.T) {
	store := kv.NewMemory()
	v := openVault(t, store, false)
	ctx := context.Background()

	require.NoError(t, v.Put(ctx, "login_attempts_a@x.com", counter{Count: 3}))

	raw, err := store.Get(ctx, "login_attempts_a@x.com")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "count", "value must not be stored in clear")

	var got counter
	found, err := v.Get(ctx, "login_attempts_a@x.com", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, got.Count)

	found, err = v.Get(ctx, "absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestValuesSurviveReopen(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, openVault(t, store, false).Put(ctx, "k", counter{Count: 9}))

	var got counter
	found, err := openVault(t, store, false).Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 9, got.Count)
}

func TestTamperedCiphertextFails(t *testing.T) {
	store := kv.NewMemory()
	v := openVault(t, store, false)
	ctx := context.Background()
	require.NoError(t, v.Put(ctx, "k", counter{Count: 1}))

	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, store.Set(ctx, "k", raw))

	var got counter
	_, err = v.Get(ctx, "k", &got)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestCiphertextBoundToKey(t *testing.T) {
	store := kv.NewMemory()
	v := openVault(t, store, false)
	ctx := context.Background()
	require.NoError(t, v.Put(ctx, "mfa_u1", counter{Count: 1}))

	raw, err := store.Get(ctx, "mfa_u1")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "mfa_u2", raw))

	var got counter
	_, err = v.Get(ctx, "mfa_u2", &got)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestLegacyPlaintextMigrates(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	plain, err := json.Marshal(counter{Count: 4})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "app_credentials", plain))

	strict := openVault(t, store, false)
	var got counter
	_, err = strict.Get(ctx, "app_credentials", &got)
	assert.ErrorIs(t, err, ErrDecryption)

	v := openVault(t, store, true)
	found, err := v.Get(ctx, "app_credentials", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, got.Count)

	raw, err := store.Get(ctx, "app_credentials")
	require.NoError(t, err)
	assert.NotEqual(t, plain, raw, "legacy value must be re-encrypted")

	got = counter{}
	found, err = strict.Get(ctx, "app_credentials", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, got.Count)
}

func TestMutateSerializesUpdates(t *testing.T) {
	v := openVault(t, kv.NewMemory(), false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Mutate(ctx, v, "sessions_u1", func(cur *counter, _ bool) (Op, error) {
				cur.Count++
				return Save, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var got counter
	_, err := v.Get(ctx, "sessions_u1", &got)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Count)
}

func TestMutateKeepAndRemove(t *testing.T) {
	v := openVault(t, kv.NewMemory(), false)
	ctx := context.Background()

	err := Mutate(ctx, v, "k", func(cur *counter, exists bool) (Op, error) {
		assert.False(t, exists)
		return Keep, nil
	})
	require.NoError(t, err)

	var got counter
	found, err := v.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, v.Put(ctx, "k", counter{Count: 2}))
	err = Mutate(ctx, v, "k", func(cur *counter, exists bool) (Op, error) {
		assert.True(t, exists)
		assert.Equal(t, 2, cur.Count)
		return Remove, nil
	})
	require.NoError(t, err)

	found, err = v.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

// racingStore changes the value behind the vault's back once, forcing a CAS
// conflict on the first Mutate attempt.
type racingStore struct {
	*kv.Memory
	once sync.Once
	v    *Vault
}

func (r *racingStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	if key != KeyName {
		r.once.Do(func() {
			sealed, _ := r.v.seal(key, counter{Count: 100})
			_ = r.Memory.Set(ctx, key, sealed)
		})
	}
	return r.Memory.CompareAndSwap(ctx, key, prev, next)
}

func TestMutateRetriesOnConflict(t *testing.T) {
	store := &racingStore{Memory: kv.NewMemory()}
	v := openVault(t, store, false)
	store.v = v
	ctx := context.Background()

	calls := 0
	err := Mutate(ctx, v, "k", func(cur *counter, _ bool) (Op, error) {
		calls++
		cur.Count++
		return Save, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	var got counter
	_, err = v.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, 101, got.Count)
}
