package match

import "sort"

// StandingRow is one team's line in a table.
type StandingRow struct {
	TeamID         int64  `json:"team_id"`
	TeamName       string `json:"team_name"`
	Played         int    `json:"played"`
	Won            int    `json:"won"`
	Drawn          int    `json:"drawn"`
	Lost           int    `json:"lost"`
	GoalsFor       int    `json:"goals_for"`
	GoalsAgainst   int    `json:"goals_against"`
	GoalDifference int    `json:"goal_difference"`
	Points         int    `json:"points"`
}

// ComputeStandings folds completed matches into a ranked table. Only matches
// with both scores present count. Ordering is deterministic: points desc,
// goal difference desc, goals for desc, team name asc.
func ComputeStandings(matches []Match, teamNames map[int64]string) []StandingRow {
	rows := make(map[int64]*StandingRow)

	row := func(teamID int64) *StandingRow {
		if r, ok := rows[teamID]; ok {
			return r
		}
		r := &StandingRow{TeamID: teamID, TeamName: teamNames[teamID]}
		rows[teamID] = r
		return r
	}

	for _, m := range matches {
		if m.Status != StatusCompleted || m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		home, away := row(m.HomeTeamID), row(m.AwayTeamID)
		hs, as := *m.HomeScore, *m.AwayScore

		home.Played++
		away.Played++
		home.GoalsFor += hs
		home.GoalsAgainst += as
		away.GoalsFor += as
		away.GoalsAgainst += hs

		switch {
		case hs > as:
			home.Won++
			home.Points += 3
			away.Lost++
		case hs < as:
			away.Won++
			away.Points += 3
			home.Lost++
		default:
			home.Drawn++
			away.Drawn++
			home.Points++
			away.Points++
		}
	}

	out := make([]StandingRow, 0, len(rows))
	for _, r := range rows {
		r.GoalDifference = r.GoalsFor - r.GoalsAgainst
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamName < b.TeamName
	})

	return out
}
