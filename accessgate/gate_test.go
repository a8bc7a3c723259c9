package accessgate

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Authorize(t *testing.T) {
	admin := interfaces.Identity{0x01}
	fulfiller := interfaces.Identity{0x02}
	stranger := interfaces.Identity{0x03}

	roles := NewStaticRoleTable().
		WithMembers(interfaces.RoleAdmin, admin).
		WithMembers(interfaces.RoleFulfiller, fulfiller)
	gate := NewGate(roles, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name    string
		caller  interfaces.Identity
		role    interfaces.Role
		wantErr bool
	}{
		{"admin as admin", admin, interfaces.RoleAdmin, false},
		{"fulfiller as fulfiller", fulfiller, interfaces.RoleFulfiller, false},
		{"admin as fulfiller", admin, interfaces.RoleFulfiller, true},
		{"fulfiller as admin", fulfiller, interfaces.RoleAdmin, true},
		{"stranger", stranger, interfaces.RoleAdmin, true},
		{"zero identity", interfaces.Identity{}, interfaces.RoleFulfiller, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.caller, tt.role)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGate_NilTableDeniesEverything(t *testing.T) {
	gate := NewGate(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, gate.Authorize(interfaces.Identity{0x01}, interfaces.RoleAdmin), interfaces.ErrUnauthorized)
}

func TestParseIdentities(t *testing.T) {
	ids, err := ParseIdentities([]string{
		"0x0000000000000000000000000000000000000001",
		"00000000000000000000000000000000000000ff",
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, byte(0x01), ids[0][19])
	assert.Equal(t, byte(0xff), ids[1][19])

	_, err = ParseIdentities([]string{"0x1234"})
	assert.Error(t, err)

	roles := NewStaticRoleTable().WithMembers(interfaces.RoleAdmin, ids...)
	assert.Len(t, roles.Members(interfaces.RoleAdmin), 2)
	assert.Empty(t, roles.Members(interfaces.RoleFulfiller))
}
