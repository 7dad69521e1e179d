package spdm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SlotStore {
	t.Helper()
	store, err := OpenSlotStore(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSlotStoreRoundtrip(t *testing.T) {
	store := openTestStore(t)
	cert := testCertificate(t, "device")

	require.NoError(t, store.StoreSlot(0, cert))

	got, found, err := store.ReadSlot(0)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Chain, 1)
	assert.Equal(t, cert.Chain[0].Raw, got.Chain[0].Raw)
	assert.Equal(t, cert.PrivateKey.Public(), got.PrivateKey.Public())
}

func TestSlotStoreMissingSlot(t *testing.T) {
	store := openTestStore(t)

	_, found, err := store.ReadSlot(5)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSlotStoreReplace(t *testing.T) {
	store := openTestStore(t)
	first := testCertificate(t, "first")
	second := testCertificate(t, "second")

	require.NoError(t, store.StoreSlot(1, first))
	require.NoError(t, store.StoreSlot(1, second))

	got, found, err := store.ReadSlot(1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.Chain[0].Raw, got.Chain[0].Raw)
}

func TestSlotStoreDelete(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.StoreSlot(2, testCertificate(t, "gone")))

	found, err := store.DeleteSlot(2)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.DeleteSlot(2)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.ReadSlot(2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSlotStoreValidation(t *testing.T) {
	store := openTestStore(t)

	assert.Error(t, store.StoreSlot(MaxSlotCount, testCertificate(t, "high")))
	assert.Error(t, store.StoreSlot(0, nil))
	assert.Error(t, store.StoreSlot(0, &Certificate{}))
}

func TestSlotStoreLoadLocal(t *testing.T) {
	store := openTestStore(t)
	slot0 := testCertificate(t, "slot0")
	slot2 := testCertificate(t, "slot2")
	require.NoError(t, store.StoreSlot(0, slot0))
	require.NoError(t, store.StoreSlot(2, slot2))

	var local LocalParameters
	require.NoError(t, store.LoadLocal(&local))

	assert.Equal(t, uint8(3), local.SlotCount)
	require.NotNil(t, local.Certificates[0])
	require.Nil(t, local.Certificates[1])
	require.NotNil(t, local.Certificates[2])
	assert.Equal(t, slot2.Chain[0].Raw, local.Certificates[2].Chain[0].Raw)
}
