package access

import (
	"fmt"

	"github.com/matchtrack/matchtrack/internal/domain/user"
)

// Tag classifies an action by the scope a caller needs for it.
type Tag string

const (
	// TagAdmin actions are reserved for admins (club create/delete, league
	// administration).
	TagAdmin Tag = "admin-scope"
	// TagClub actions are open to the owning club's manager.
	TagClub Tag = "club-scope"
	// TagTeam actions are open to managers assigned to the resource's team.
	TagTeam Tag = "team-scope"
	// TagRead actions are reads open to any authenticated caller.
	TagRead Tag = "read-scope"
	// TagPublic actions need no authentication (invite code validation).
	TagPublic Tag = "public"
	// TagIngest actions are for machine producers posting match submissions.
	TagIngest Tag = "ingest"
)

type Action struct {
	Name string
	Tag  Tag
}

var (
	MatchCreate = Action{Name: "match.create", Tag: TagTeam}
	MatchUpdate = Action{Name: "match.update", Tag: TagTeam}
	MatchDelete = Action{Name: "match.delete", Tag: TagTeam}
	MatchRead   = Action{Name: "match.read", Tag: TagRead}
	MatchSubmit = Action{Name: "match.submit", Tag: TagIngest}

	TeamCreate = Action{Name: "team.create", Tag: TagClub}
	TeamUpdate = Action{Name: "team.update", Tag: TagClub}
	TeamDelete = Action{Name: "team.delete", Tag: TagClub}
	TeamRead   = Action{Name: "team.read", Tag: TagRead}

	ClubCreate = Action{Name: "club.create", Tag: TagAdmin}
	ClubUpdate = Action{Name: "club.update", Tag: TagClub}
	ClubDelete = Action{Name: "club.delete", Tag: TagAdmin}
	ClubRead   = Action{Name: "club.read", Tag: TagRead}

	TableRead = Action{Name: "table.read", Tag: TagRead}

	InviteValidate = Action{Name: "invite.validate", Tag: TagPublic}
)

// Resource describes the target row(s) of an action. Empty fields mean the
// action is not bound to that scope (e.g. creating a club).
type Resource struct {
	// ClubIDs lists the clubs owning the touched rows; a match touches the
	// owning club of each side.
	ClubIDs []int64
	// TeamIDs lists every team the action touches; a match descriptor carries
	// both sides so either side's manager qualifies.
	TeamIDs []int64
}

func (r Resource) hasClub(clubID *int64) bool {
	if clubID == nil {
		return false
	}
	for _, id := range r.ClubIDs {
		if id == *clubID {
			return true
		}
	}
	return false
}

// Subject is the caller as the engine sees it: verified claims joined with
// profile scope and (for team managers) the assignment set.
type Subject struct {
	UserID         string
	Role           user.Role
	ClubID         *int64
	TeamID         *int64
	ManagerTeamIDs []int64
	Anonymous      bool
}

// Decision carries the verdict plus an explanatory reason for audit logs.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(format string, args ...any) Decision {
	return Decision{Allowed: true, Reason: fmt.Sprintf(format, args...)}
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Decide answers "may subject perform action on resource". It is pure: the
// assignment set is looked up (and request-cached) by the caller.
func Decide(sub Subject, action Action, res Resource) Decision {
	if action.Tag == TagPublic {
		return allow("public action")
	}
	if sub.Anonymous {
		return deny("anonymous caller may only use public actions")
	}

	if sub.Role == user.RoleAdmin {
		return allow("admin")
	}

	switch action.Tag {
	case TagRead:
		return allow("authenticated read")

	case TagIngest:
		if sub.Role == user.RoleService {
			return allow("service account with ingest capability")
		}
		return deny("role %s lacks the ingest capability", sub.Role)

	case TagAdmin:
		return deny("action %s requires admin", action.Name)

	case TagClub:
		if sub.Role != user.RoleClubManager {
			return deny("action %s requires club scope, role is %s", action.Name, sub.Role)
		}
		if !res.hasClub(sub.ClubID) {
			return deny("club manager scope does not cover target club")
		}
		return allow("club manager of club %d", *sub.ClubID)

	case TagTeam:
		switch sub.Role {
		case user.RoleClubManager:
			// A club manager covers team-scope actions inside its own club.
			if res.hasClub(sub.ClubID) {
				return allow("club manager of owning club %d", *sub.ClubID)
			}
			return deny("club manager scope does not cover target club")
		case user.RoleTeamManager:
			for _, assigned := range sub.ManagerTeamIDs {
				for _, target := range res.TeamIDs {
					if assigned == target {
						return allow("team manager assigned to team %d", target)
					}
				}
			}
			return deny("team manager is not assigned to any target team")
		default:
			return deny("role %s is read-only", sub.Role)
		}

	default:
		return deny("unknown action tag %q", action.Tag)
	}
}
