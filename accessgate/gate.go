package accessgate

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ruteri/entropy-vault/interfaces"
)

// Gate authorizes restricted operations against an externally supplied role table.
// It holds no state of its own.
type Gate struct {
	roles interfaces.RoleTable
	log   *slog.Logger
}

// NewGate creates a gate backed by roles.
func NewGate(roles interfaces.RoleTable, log *slog.Logger) *Gate {
	return &Gate{roles: roles, log: log}
}

// Authorize returns ErrUnauthorized if caller does not hold role.
func (g *Gate) Authorize(caller interfaces.Identity, role interfaces.Role) error {
	if g.roles != nil && g.roles.HasRole(caller, role) {
		return nil
	}

	g.log.Debug("authorization denied", "caller", caller.String(), "role", role)
	return fmt.Errorf("%w: %s role required", interfaces.ErrUnauthorized, role)
}

// StaticRoleTable is an in-memory role assignment, typically loaded from CLI flags.
type StaticRoleTable struct {
	mu      sync.RWMutex
	members map[interfaces.Role]map[interfaces.Identity]struct{}
}

// NewStaticRoleTable creates an empty role table.
func NewStaticRoleTable() *StaticRoleTable {
	return &StaticRoleTable{members: make(map[interfaces.Role]map[interfaces.Identity]struct{})}
}

// WithMembers returns the table after granting role to every identity in ids.
func (t *StaticRoleTable) WithMembers(role interfaces.Role, ids ...interfaces.Identity) *StaticRoleTable {
	for _, id := range ids {
		t.Grant(role, id)
	}
	return t
}

// Grant assigns role to id.
func (t *StaticRoleTable) Grant(role interfaces.Role, id interfaces.Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.members[role]
	if !ok {
		set = make(map[interfaces.Identity]struct{})
		t.members[role] = set
	}
	set[id] = struct{}{}
}

// HasRole implements interfaces.RoleTable.
func (t *StaticRoleTable) HasRole(caller interfaces.Identity, role interfaces.Role) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.members[role][caller]
	return ok
}

// Members lists the identities holding role, in no particular order.
func (t *StaticRoleTable) Members(role interfaces.Role) []interfaces.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res := make([]interfaces.Identity, 0, len(t.members[role]))
	for id := range t.members[role] {
		res = append(res, id)
	}
	return res
}

// ParseIdentities parses a list of hex addresses, as passed on the command line.
func ParseIdentities(hexAddrs []string) ([]interfaces.Identity, error) {
	res := make([]interfaces.Identity, 0, len(hexAddrs))
	for _, addr := range hexAddrs {
		id, err := interfaces.NewIdentityFromHex(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid identity %q: %w", addr, err)
		}
		res = append(res, id)
	}
	return res, nil
}
