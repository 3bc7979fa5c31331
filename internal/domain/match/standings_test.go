package match

import (
	"reflect"
	"testing"
	"time"
)

func score(n int) *int { return &n }

func completed(home, away int64, hs, as int) Match {
	return Match{
		HomeTeamID: home,
		AwayTeamID: away,
		HomeScore:  score(hs),
		AwayScore:  score(as),
		MatchDate:  time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC),
		Status:     StatusCompleted,
	}
}

func TestComputeStandings_PointsAndOrdering(t *testing.T) {
	t.Parallel()

	names := map[int64]string{1: "Harbor United", 2: "North End", 3: "Riverside"}
	matches := []Match{
		completed(1, 2, 3, 1),
		completed(2, 3, 2, 2),
		completed(3, 1, 0, 1),
	}

	rows := ComputeStandings(matches, names)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	want := []StandingRow{
		{TeamID: 1, TeamName: "Harbor United", Played: 2, Won: 2, GoalsFor: 4, GoalsAgainst: 1, GoalDifference: 3, Points: 6},
		{TeamID: 2, TeamName: "North End", Played: 2, Drawn: 1, Lost: 1, GoalsFor: 3, GoalsAgainst: 5, GoalDifference: -2, Points: 1},
		{TeamID: 3, TeamName: "Riverside", Played: 2, Drawn: 1, Lost: 1, GoalsFor: 2, GoalsAgainst: 3, GoalDifference: -1, Points: 1},
	}
	if !reflect.DeepEqual(rows[0], want[0]) {
		t.Fatalf("unexpected leader row:\nwant %+v\ngot  %+v", want[0], rows[0])
	}

	// 2 and 3 are level on points; goal difference decides.
	if rows[1].TeamID != 3 || rows[2].TeamID != 2 {
		t.Fatalf("goal difference tiebreak broken: %+v", rows)
	}
}

func TestComputeStandings_TiebreakFallsThroughToName(t *testing.T) {
	t.Parallel()

	names := map[int64]string{1: "Avon", 2: "Benton"}
	matches := []Match{completed(1, 2, 1, 1)}

	rows := ComputeStandings(matches, names)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TeamName != "Avon" || rows[1].TeamName != "Benton" {
		t.Fatalf("identical records must order by name: %+v", rows)
	}
}

func TestComputeStandings_IgnoresNonCountableMatches(t *testing.T) {
	t.Parallel()

	names := map[int64]string{1: "A", 2: "B"}
	scheduled := completed(1, 2, 0, 0)
	scheduled.Status = StatusScheduled
	missingScores := completed(1, 2, 0, 0)
	missingScores.HomeScore = nil
	missingScores.AwayScore = nil

	rows := ComputeStandings([]Match{scheduled, missingScores}, names)
	if len(rows) != 0 {
		t.Fatalf("non-completed or scoreless matches must not produce rows: %+v", rows)
	}
}

func TestComputeStandings_DeterministicAcrossInputOrder(t *testing.T) {
	t.Parallel()

	names := map[int64]string{1: "A", 2: "B", 3: "C", 4: "D"}
	matches := []Match{
		completed(1, 2, 2, 0),
		completed(3, 4, 1, 1),
		completed(2, 3, 0, 3),
		completed(4, 1, 2, 2),
	}

	first := ComputeStandings(matches, names)

	reversed := make([]Match, len(matches))
	for i, m := range matches {
		reversed[len(matches)-1-i] = m
	}
	second := ComputeStandings(reversed, names)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("standings depend on input order:\nfirst  %+v\nsecond %+v", first, second)
	}
}
