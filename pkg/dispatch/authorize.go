package dispatch

import (
	"context"

	"github.com/keshon/discord-bot-shared/pkg/cmd"
)

// Decision is the outcome of the authorization gate.
type Decision uint8

const (
	Allowed Decision = iota
	Denied
	AuthError
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "error"
	}
}

// Authorize checks the invoker against the definition's required roles.
//
// A definition without a role list is open to everyone; an explicitly empty
// list admits nobody. Otherwise the invoker needs any one of the listed roles,
// matched by role ID or role name. Failing to resolve the member or the guild
// roles yields AuthError together with a KindAuthorizationError error.
func Authorize(_ context.Context, members MemberResolver, def cmd.Definition, inv *cmd.Invocation) (Decision, error) {
	if !def.Restricted() {
		return Allowed, nil
	}
	if len(def.RequiredRoles) == 0 {
		return Denied, nil
	}

	member, err := members.Member(inv.GuildID, inv.UserID)
	if err != nil {
		return AuthError, newError(KindAuthorizationError, def.Name, "resolve member", err)
	}
	if member == nil {
		return AuthError, newError(KindAuthorizationError, def.Name, "resolve member: not found", nil)
	}

	required := make(map[string]struct{}, len(def.RequiredRoles))
	for _, r := range def.RequiredRoles {
		required[r] = struct{}{}
	}

	// Every member implicitly holds the @everyone role, whose ID is the guild ID.
	held := append([]string{inv.GuildID}, member.Roles...)
	for _, id := range held {
		if _, ok := required[id]; ok {
			return Allowed, nil
		}
	}

	roles, err := members.Roles(inv.GuildID)
	if err != nil {
		return AuthError, newError(KindAuthorizationError, def.Name, "resolve guild roles", err)
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		if r != nil {
			names[r.ID] = r.Name
		}
	}
	for _, id := range held {
		name, ok := names[id]
		if !ok {
			continue
		}
		if _, ok := required[name]; ok {
			return Allowed, nil
		}
	}
	return Denied, nil
}
