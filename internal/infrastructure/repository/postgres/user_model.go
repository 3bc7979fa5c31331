package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/matchtrack/matchtrack/internal/domain/user"
)

type profileTableModel struct {
	ID                 string         `db:"id"`
	Username           string         `db:"username"`
	Email              string         `db:"email"`
	PhoneNumber        sql.NullString `db:"phone_number"`
	Role               string         `db:"role"`
	TeamID             sql.NullInt64  `db:"team_id"`
	ClubID             sql.NullInt64  `db:"club_id"`
	DisplayName        sql.NullString `db:"display_name"`
	PlayerNumber       sql.NullInt64  `db:"player_number"`
	Positions          pq.StringArray `db:"positions"`
	AssignedAgeGroupID sql.NullInt64  `db:"assigned_age_group_id"`
	InvitedViaCode     sql.NullString `db:"invited_via_code"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (m profileTableModel) toDomain() user.Profile {
	role, _ := user.ParseRole(m.Role)
	p := user.Profile{
		ID:                 m.ID,
		Username:           m.Username,
		Email:              m.Email,
		PhoneNumber:        m.PhoneNumber.String,
		Role:               role,
		TeamID:             nullInt64Ptr(m.TeamID),
		ClubID:             nullInt64Ptr(m.ClubID),
		DisplayName:        m.DisplayName.String,
		AssignedAgeGroupID: nullInt64Ptr(m.AssignedAgeGroupID),
		InvitedViaCode:     m.InvitedViaCode.String,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.PlayerNumber.Valid {
		number := int(m.PlayerNumber.Int64)
		p.PlayerNumber = &number
	}
	if len(m.Positions) > 0 {
		p.Positions = append([]string(nil), m.Positions...)
	}
	return p
}

type sessionTableModel struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	FamilyID    string     `db:"family_id"`
	RefreshHash string     `db:"refresh_hash"`
	AccessJTI   string     `db:"access_jti"`
	ExpiresAt   time.Time  `db:"expires_at"`
	RotatedAt   *time.Time `db:"rotated_at"`
	RevokedAt   *time.Time `db:"revoked_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (m sessionTableModel) toDomain() user.Session {
	return user.Session{
		ID:          m.ID,
		UserID:      m.UserID,
		FamilyID:    m.FamilyID,
		RefreshHash: m.RefreshHash,
		AccessJTI:   m.AccessJTI,
		ExpiresAt:   m.ExpiresAt,
		RotatedAt:   m.RotatedAt,
		RevokedAt:   m.RevokedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}

func ptrNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ptrNullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
