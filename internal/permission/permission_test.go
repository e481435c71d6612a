package permission_test

import (
	"context"
	"testing"

	"github.com/edirooss/findex-server/internal/permission"
	"github.com/edirooss/findex-server/internal/permission/permissiontest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionOrdering(t *testing.T) {
	assert.Less(t, permission.Read, permission.Write)
	assert.Less(t, permission.Write, permission.Admin)
}

func TestParsePermission(t *testing.T) {
	cases := map[string]permission.Permission{
		"read": permission.Read, "Read": permission.Read, "0": permission.Read,
		"write": permission.Write, "Write": permission.Write, "1": permission.Write,
		"admin": permission.Admin, "Admin": permission.Admin, "2": permission.Admin,
	}
	for in, want := range cases {
		got, err := permission.ParsePermission(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := permission.ParsePermission("superuser")
	assert.ErrorIs(t, err, permission.ErrInvalidPermission)
}

func TestMin(t *testing.T) {
	assert.Equal(t, permission.Read, permission.Min(permission.Read, permission.Admin))
	assert.Equal(t, permission.Write, permission.Min(permission.Write, permission.Write))
}

func TestFakeStore_CreateIndexGrantsAdmin(t *testing.T) {
	ctx := context.Background()
	store := permissiontest.New()

	indexID, err := store.CreateIndex(ctx, "alice")
	require.NoError(t, err)

	got, err := store.Get(ctx, "alice", indexID)
	require.NoError(t, err)
	assert.Equal(t, permission.Admin, got)
}

func TestFakeStore_GetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	store := permissiontest.New()

	_, err := store.Get(ctx, "alice", uuid.New())
	assert.ErrorIs(t, err, permission.ErrNotFound)
}

func TestFakeStore_RevokeNonExistentIsNoop(t *testing.T) {
	ctx := context.Background()
	store := permissiontest.New()

	err := store.Revoke(ctx, "alice", uuid.New())
	assert.NoError(t, err)
}

func TestFakeStore_ListVisibility(t *testing.T) {
	ctx := context.Background()
	store := permissiontest.New()

	x, err := store.CreateIndex(ctx, "u")
	require.NoError(t, err)
	y, err := store.CreateIndex(ctx, "u")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "v", permission.Admin, x))
	require.NoError(t, store.Set(ctx, "v", permission.Admin, y))
	require.NoError(t, store.Set(ctx, "u", permission.Read, y))

	uPerms, err := store.List(ctx, "u")
	require.NoError(t, err)
	vPerms, err := store.List(ctx, "v")
	require.NoError(t, err)

	visible := map[string]permission.Permission{}
	for id, vp := range vPerms {
		up, ok := uPerms[id]
		if !ok {
			continue
		}
		visible[id.String()] = permission.Min(up, vp)
	}

	assert.Equal(t, permission.Admin, visible[x.String()])
	assert.Equal(t, permission.Read, visible[y.String()])
}
