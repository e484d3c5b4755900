package world

// Permission strings.
const (
	PermAdmin    = "shops.admin" // create admin shops, edit/remove any shop, economy commands
	PermUse      = "shops.use"   // trade at admin shops
	PermWildcard = "shops.*"
)

// Permissions is the permission collaborator. Operators bypass every check.
type Permissions interface {
	IsOperator(accountID string) bool
	Has(accountID, perm string) bool
}

// StaticPermissions answers from configured operator and grant lists.
type StaticPermissions struct {
	operators map[string]bool
	grants    map[string]map[string]bool
}

func NewStaticPermissions(operators []string, grants map[string][]string) *StaticPermissions {
	p := &StaticPermissions{
		operators: map[string]bool{},
		grants:    map[string]map[string]bool{},
	}
	for _, op := range operators {
		p.operators[op] = true
	}
	for acct, perms := range grants {
		m := map[string]bool{}
		for _, perm := range perms {
			m[perm] = true
		}
		p.grants[acct] = m
	}
	return p
}

func (p *StaticPermissions) IsOperator(accountID string) bool {
	return p.operators[accountID]
}

func (p *StaticPermissions) Has(accountID, perm string) bool {
	g := p.grants[accountID]
	return g[perm] || g[PermWildcard]
}

// hasPermission applies the operator and wildcard overrides.
func (w *World) hasPermission(accountID, perm string) bool {
	if w.perms == nil {
		return false
	}
	if w.perms.IsOperator(accountID) {
		return true
	}
	return w.perms.Has(accountID, perm)
}
