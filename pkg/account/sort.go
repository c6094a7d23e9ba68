// Copyright 2025 Certen Protocol

package account

import (
	"bytes"
	"sort"
)

// sortGrants orders RoleGrant entries by grantee address so the encoded
// Account is deterministic regardless of map iteration order upstream.
func sortGrants(grants []RoleGrant) []RoleGrant {
	sort.Slice(grants, func(i, j int) bool {
		return bytes.Compare(grants[i].Grantee[:], grants[j].Grantee[:]) < 0
	})
	return grants
}

// sortRoles orders a grantee's role list lexically for the same reason.
func sortRoles(roles []Role) []Role {
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
