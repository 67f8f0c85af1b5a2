// Package policy holds the role-based access rules for every API resource.
// Decide is a pure function so the whole table can be tested without HTTP.
package policy

import (
	"net/http"

	"media-review/internal/data/entity"
)

// Anonymous is the role of a caller without a valid access token.
const Anonymous entity.UserRole = ""

type Resource string

const (
	// Catalog covers categories, genres and titles.
	Catalog Resource = "catalog"
	// Discussion covers reviews and comments, which have an author.
	Discussion Resource = "discussion"
	// Users is the admin user-management area.
	Users Resource = "users"
	// Profile is the caller's own record at /users/me.
	Profile Resource = "profile"
)

// IsSafeMethod reports whether method is read-only.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Decide returns whether a caller with role may perform method on resource.
// isOwner tells whether the caller authored the target object; it only
// matters for Discussion writes.
func Decide(role entity.UserRole, resource Resource, method string, isOwner bool) bool {
	if !role.Valid() {
		role = Anonymous
	}
	authenticated := role != Anonymous

	switch resource {
	case Catalog:
		if IsSafeMethod(method) {
			return true
		}
		return isWrite(method) && role.IsAdmin()

	case Discussion:
		if IsSafeMethod(method) {
			return true
		}
		if !authenticated {
			return false
		}
		switch method {
		case http.MethodPost:
			return true
		case http.MethodPut, http.MethodPatch, http.MethodDelete:
			return isOwner || role.IsModerator()
		}
		return false

	case Users:
		return (IsSafeMethod(method) || isWrite(method)) && role.IsAdmin()

	case Profile:
		if !authenticated {
			return false
		}
		return IsSafeMethod(method) || method == http.MethodPatch
	}

	return false
}

// Gate is the route-level check, made before the target object is loaded.
// Ownership is assumed, so Discussion writes pass for any authenticated
// caller here and are decided again by the service once the author is known.
func Gate(role entity.UserRole, resource Resource, method string) bool {
	return Decide(role, resource, method, true)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
