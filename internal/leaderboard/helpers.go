package leaderboard

import (
	"strconv"

	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:        i + 1,
			CandidateID: e.CandidateID,
			DisplayName: e.DisplayName,
			Score:       e.Score,
			MaxScore:    e.MaxScore,
			Attempts:    e.Attempts,
		}
	}
	return result
}

// entryFromMeta decodes a metadata hash. Missing fields stay zero.
func entryFromMeta(candidateID string, data map[string]string) Entry {
	return Entry{
		CandidateID: candidateID,
		DisplayName: data["display_name"],
		MaxScore:    parseFloat(data["max_score"]),
		Attempts:    parseInt(data["attempts"]),
	}
}

func parseFloat(val string) float64 {
	if val == "" {
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
