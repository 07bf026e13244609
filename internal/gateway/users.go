package gateway

import (
	"context"
	"errors"
	"strings"

	"foro/internal/cache"
	"foro/internal/core"
	"foro/internal/log"
)

// EnsureUser creates the user's profile with the normal role, or refreshes
// the email of an existing one. An existing role is never downgraded.
func (g *Gateway) EnsureUser(ctx context.Context, userID, email string) (core.UserProfile, error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return core.UserProfile{}, err
	}
	email = strings.TrimSpace(email)

	profile, found, err := g.loadProfile(ctx, userID)
	if err != nil {
		return core.UserProfile{}, err
	}

	patch := core.Document{core.KeyEmail: email}
	if !found || profile.Role == "" {
		profile.Role = core.RoleNormal
		patch[core.KeyRole] = string(core.RoleNormal)
	}
	if err := g.store.Merge(ctx, core.UsersCollection, userID, patch); err != nil {
		g.logFailure(ctx, "Failed to ensure user", log.OpMerge, core.UsersCollection, userID, err)
		return core.UserProfile{}, storeErr(log.OpMerge, core.UsersCollection, err)
	}
	g.roles.Delete(userID)

	profile.ID, profile.Email = userID, email
	if !found {
		g.logger.InfoContext(ctx, "User profile created", log.FieldUserID, userID)
	}
	return profile, nil
}

// UserRole returns userID's role. found is false when there is no profile.
// Lookups are served from the role cache when possible.
func (g *Gateway) UserRole(ctx context.Context, userID string) (role core.Role, found bool, err error) {
	userID, err = requireUserID(userID)
	if err != nil {
		return "", false, err
	}
	cached, err := cache.GetOrLoad(ctx, g.roles, userID, func(ctx context.Context) (CachedRole, error) {
		p, found, err := g.loadProfile(ctx, userID)
		if err != nil {
			return CachedRole{}, err
		}
		return CachedRole{Role: p.Role, Found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	return cached.Role, cached.Found, nil
}

// IsAdmin reports whether the session user has the admin role.
func (g *Gateway) IsAdmin(ctx context.Context) (bool, error) {
	userID, err := g.currentUser()
	if err != nil {
		return false, err
	}
	role, _, err := g.UserRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return role.CanManageEvents(), nil
}

func (g *Gateway) loadProfile(ctx context.Context, userID string) (core.UserProfile, bool, error) {
	doc, err := g.store.Get(ctx, core.UsersCollection, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.UserProfile{ID: userID}, false, nil
	}
	if err != nil {
		return core.UserProfile{}, false, storeErr(log.OpRead, core.UsersCollection, err)
	}
	return core.UserProfileFromDocument(userID, doc), true, nil
}
