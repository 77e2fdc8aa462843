package rooms

import (
	"fmt"
	"strconv"
	"strings"
)

// Room is the address of a broadcast group.
type Room string

// Kind is the family a room belongs to.
type Kind string

const (
	KindUser    Kind = "user"
	KindCompany Kind = "company"
	KindRole    Kind = "role"
)

// UserRoom addresses every connection of a single user.
func UserRoom(userID int64) Room { return room(KindUser, userID) }

// CompanyRoom addresses every connection of users in a company.
func CompanyRoom(companyID int64) Room { return room(KindCompany, companyID) }

// RoleRoom addresses every connection of users holding a role.
func RoleRoom(roleID int64) Room { return room(KindRole, roleID) }

func room(kind Kind, id int64) Room {
	return Room(string(kind) + ":" + strconv.FormatInt(id, 10))
}

// ForPrincipal returns the rooms a principal joins on authentication.
// The user room is always first.
func ForPrincipal(userID int64, companyID, roleID *int64) []Room {
	out := []Room{UserRoom(userID)}
	if companyID != nil {
		out = append(out, CompanyRoom(*companyID))
	}
	if roleID != nil {
		out = append(out, RoleRoom(*roleID))
	}
	return out
}

// Parse splits a room into its kind and numeric id.
func Parse(r Room) (Kind, int64, error) {
	kind, rawID, ok := strings.Cut(string(r), ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed room %q", r)
	}
	switch Kind(kind) {
	case KindUser, KindCompany, KindRole:
	default:
		return "", 0, fmt.Errorf("unknown room kind %q", kind)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed room id %q: %w", rawID, err)
	}
	return Kind(kind), id, nil
}
