package session

// Event names emitted through the EventSink.
const (
	EventQuestionBroadcast = "question_broadcast"
	EventCountdownTick     = "countdown_tick"
	EventRevealed          = "revealed"
	EventParticipantList   = "participant_list"
	EventSessionEnded      = "session_ended"
	EventAnswerResult      = "answer_result"
)

// QuestionView is the broadcast form of a question. The correct answer is
// redacted; only display fields cross the wire.
type QuestionView struct {
	SessionID        string   `json:"session_id"`
	QuestionID       string   `json:"question_id"`
	Index            int      `json:"index"`
	Text             string   `json:"text"`
	Type             string   `json:"type"`
	Options          []string `json:"options,omitempty"`
	Points           int      `json:"points"`
	TimeLimitSeconds int      `json:"time_limit_seconds,omitempty"`
}

// CountdownTickView is broadcast once per second while a timed question runs.
type CountdownTickView struct {
	SessionID        string `json:"session_id"`
	QuestionID       string `json:"question_id"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

// RevealView carries the correct answer plus the leaderboard snapshot.
type RevealView struct {
	SessionID     string             `json:"session_id"`
	QuestionID    string             `json:"question_id"`
	CorrectAnswer string             `json:"correct_answer"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
}

// ParticipantListView goes to the session creator when the roster changes.
type ParticipantListView struct {
	SessionID      string            `json:"session_id"`
	ConnectedCount int               `json:"connected_count"`
	Participants   []ParticipantInfo `json:"participants"`
}

// SessionEndedView closes out a session with the final standings.
type SessionEndedView struct {
	SessionID        string             `json:"session_id"`
	FinalLeaderboard []LeaderboardEntry `json:"final_leaderboard"`
}

// AnswerResultView is unicast to the submitting participant only.
type AnswerResultView struct {
	SessionID     string `json:"session_id"`
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	PointsAwarded int    `json:"points_awarded"`
}

func questionView(sessionID string, index int, q *Question) QuestionView {
	return QuestionView{
		SessionID:        sessionID,
		QuestionID:       q.ID.String(),
		Index:            index,
		Text:             q.Text,
		Type:             q.Type,
		Options:          q.Options,
		Points:           q.Points,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
}
