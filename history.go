package raffle

import (
	"fmt"
	"time"
)

// HistoryRecord is one completed pairing
type HistoryRecord struct {
	Participant string    `json:"participant"`
	Prize       string    `json:"prize"`
	DrawnAt     time.Time `json:"drawn_at"`
	Round       int       `json:"round"`
}

// String formats the record as "<participant> wins <prize>!"
func (r HistoryRecord) String() string {
	return fmt.Sprintf("%s wins %s!", r.Participant, r.Prize)
}

// Snapshot is a point-in-time copy of the engine state handed to the presentation layer
type Snapshot struct {
	RemainingParticipants []string        `json:"remaining_participants"`
	RemainingPrizes       []string        `json:"remaining_prizes"`
	ParticipantCount      int             `json:"participant_count"`
	PrizeCount            int             `json:"prize_count"`
	History               []HistoryRecord `json:"history"` // Newest first
	Running               bool            `json:"running"`
	Exhausted             bool            `json:"exhausted"`
	Round                 int             `json:"round"`
}

// Winners returns the participants who have won in the given round, oldest first
func (s Snapshot) Winners(round int) []string {
	var winners []string
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Round == round {
			winners = append(winners, s.History[i].Participant)
		}
	}
	return winners
}

// FormatHistory renders the history newest first, one numbered line per record
func FormatHistory(history []HistoryRecord) []string {
	lines := make([]string, 0, len(history))
	for i, record := range history {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s",
			len(history)-i, record.DrawnAt.Format("15:04:05"), record.String()))
	}
	return lines
}

func copyStrings(src []string) []string {
	if src == nil {
		return []string{}
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func copyHistory(src []HistoryRecord) []HistoryRecord {
	dst := make([]HistoryRecord, len(src))
	copy(dst, src)
	return dst
}

// removeAt deletes s[i] preserving order and returns the shortened slice
func removeAt(s []string, i int) ([]string, string) {
	v := s[i]
	return append(s[:i], s[i+1:]...), v
}
