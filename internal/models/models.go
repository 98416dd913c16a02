package models

// Phase is the current stage of the race cycle. Exactly one Phase value
// exists per process; it only changes through the game engine's transitions.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseRacersLocked Phase = "racersLocked"
	PhaseCountdown    Phase = "countdown"
	PhaseRacing       Phase = "racing"
	PhaseFinished     Phase = "finished"
)

// Participant roles. A connection joins as exactly one of these.
const (
	RoleRacer  = "racer"
	RoleBettor = "bettor"
)

// Racer is a participant who advances a position counter by tapping.
// Position is owned by the game engine and only moves in response to that
// racer's own tap events.
type Racer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Color    string `json:"color"`
	Mode     string `json:"mode"`
}

// Bettor is a participant who predicts finishing order instead of racing.
type Bettor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	Bets      *Wager `json:"bets"`
	Confirmed bool   `json:"confirmed"`
}

// Wager is a structured finishing-order prediction: up to three ordered
// top-place picks plus an optional last-place pick. A single-entry Top3 with
// no Last is the simple win-only mode.
type Wager struct {
	Top3 []string `json:"top3"`
	Last string   `json:"last,omitempty"`
}

// OddsEntry is one racer's slice of the live win-probability distribution.
// Share is an integer percentage derived from current positions; the wire
// field is named "position" for compatibility with the display clients.
type OddsEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Share int    `json:"position"`
	Color string `json:"color"`
}

// RaceResult is one racer's final standing.
type RaceResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// SettlementRecord is one bettor's payout from a finished race. Emitted for
// every bettor who placed a wager, including those who won nothing.
type SettlementRecord struct {
	BettorID    string `json:"bettorId"`
	BettorName  string `json:"bettorName"`
	TotalPoints int    `json:"totalPoints"`
	CorrectTop3 int    `json:"correctTop3"`
	CorrectLast bool   `json:"correctLast"`
}

// RaceFinished is the payload broadcast atomically when the first racer
// crosses the finish line: winner, full standings, and wager settlement in
// one message.
type RaceFinished struct {
	Winner     RaceResult         `json:"winner"`
	Results    []RaceResult       `json:"results"`
	BetResults []SettlementRecord `json:"betResults"`
}

// PositionUpdate is broadcast after every accepted tap.
type PositionUpdate struct {
	PlayerID string `json:"playerId"`
	Position int    `json:"position"`
}

// Joined is sent to a client after a successful join.
type Joined struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color,omitempty"`
	Mode     string `json:"mode"`
}

// JoinRequest is the inbound join payload.
type JoinRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// WSMessage is the envelope for every WebSocket message in both directions.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
