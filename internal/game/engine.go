// Package game implements the authoritative race state: the roster, the
// phase machine, tap aggregation, live odds, and wager settlement.
//
// All mutable state is owned by a single goroutine consuming an event queue.
// Every externally triggered mutation (join, leave, tap, bet, host controls,
// the countdown timer firing) runs as one atomic step on that goroutine, so
// reads and writes of roster, phase, and positions never interleave. That is
// what guarantees exactly one racer is ever observed crossing the finish
// line first.
package game

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/derbyrush/internal/errors"
	"github.com/abrezinsky/derbyrush/internal/logger"
	"github.com/abrezinsky/derbyrush/internal/models"
	"github.com/abrezinsky/derbyrush/pkg/metrics"
)

// Outbound message types. These are wire-level identifiers shared with the
// display and mobile clients; renaming one breaks unchanged front ends.
const (
	MsgJoined           = "joined"
	MsgError            = "error"
	MsgPlayersUpdate    = "players-update"
	MsgBettorsUpdate    = "bettors-update"
	MsgRacersLocked     = "racers-locked"
	MsgRacersList       = "racers-list"
	MsgCountdownStart   = "countdown-start"
	MsgRaceStarted      = "race-started"
	MsgPositionUpdate   = "position-update"
	MsgOddsUpdate       = "odds-update"
	MsgRaceFinished     = "race-finished"
	MsgGameReset        = "game-reset"
	MsgAllBetsConfirmed = "all-bets-confirmed"
)

// Broadcaster is the engine's only way to become observable. Both methods
// must be fire-and-forget: the engine never waits for delivery.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{})
	SendTo(clientID, msgType string, payload interface{})
}

// Options configures an Engine.
type Options struct {
	// FinishLine is the position a racer must reach to end the race.
	FinishLine int
	// Countdown is the delay between countdown-start and race-started.
	Countdown time.Duration
	// Pot is the total pari-mutuel pot split across prize buckets.
	Pot int
	// QueueSize bounds the event queue.
	QueueSize int
	// Clock drives the countdown timer; nil means the real clock.
	Clock clockwork.Clock
	// Metrics is optional.
	Metrics *metrics.Metrics
}

const (
	DefaultFinishLine = 100
	DefaultCountdown  = 3 * time.Second
	DefaultPot        = 100000
	defaultQueueSize  = 256
)

type event struct {
	fn   func()
	done chan struct{}
}

// Engine is the authoritative game state. Create with New, start with Start,
// then drive it through the public event methods. No field is touched outside
// the run loop.
type Engine struct {
	log   logger.Logger
	bc    Broadcaster
	mx    *metrics.Metrics
	clock clockwork.Clock

	finishLine int
	countdown  time.Duration
	pot        int

	events chan event
	done   chan struct{}

	phase   models.Phase
	raceGen uint64 // bumped on every start and reset; stale-guards the countdown timer

	racers      map[string]*models.Racer
	racerOrder  []string
	bettors     map[string]*models.Bettor
	bettorOrder []string
}

// New creates an Engine. The engine does nothing until Start is called.
func New(log logger.Logger, bc Broadcaster, opts Options) *Engine {
	if opts.FinishLine <= 0 {
		opts.FinishLine = DefaultFinishLine
	}
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.Pot <= 0 {
		opts.Pot = DefaultPot
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Engine{
		log:        log,
		bc:         bc,
		mx:         opts.Metrics,
		clock:      opts.Clock,
		finishLine: opts.FinishLine,
		countdown:  opts.Countdown,
		pot:        opts.Pot,
		events:     make(chan event, opts.QueueSize),
		done:       make(chan struct{}),
		phase:      models.PhaseWaiting,
		racers:     make(map[string]*models.Racer),
		bettors:    make(map[string]*models.Bettor),
	}
}

// Start begins the engine's event loop in a goroutine. The loop exits when
// ctx is cancelled; after that every event method becomes a no-op.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			ev.fn()
			close(ev.done)
		}
	}
}

// dispatch runs fn on the engine goroutine and waits for it to complete.
// Returns false if the engine has shut down.
func (e *Engine) dispatch(fn func()) bool {
	ev := event{fn: fn, done: make(chan struct{})}
	select {
	case e.events <- ev:
	case <-e.done:
		return false
	}
	select {
	case <-ev.done:
		return true
	case <-e.done:
		return false
	}
}

// Join registers a connection as a racer or bettor. The returned error is
// meant for the joining client only; other participants are unaffected.
func (e *Engine) Join(id, name, role string) error {
	var err error
	e.dispatch(func() { err = e.handleJoin(id, name, role) })
	return err
}

// Leave removes a participant. Unknown ids are a no-op, so disconnects and
// duplicate leaves are safe.
func (e *Engine) Leave(id string) {
	e.dispatch(func() { e.handleLeave(id) })
}

// Tap advances a racer by one step. Ignored outside the racing phase.
func (e *Engine) Tap(id string) {
	e.dispatch(func() { e.handleTap(id) })
}

// PlaceBet records a bettor's wager for the current race cycle.
func (e *Engine) PlaceBet(id string, wager models.Wager) error {
	var err error
	e.dispatch(func() { err = e.handlePlaceBet(id, wager) })
	return err
}

// LockRacers freezes the racer roster as the betting universe.
func (e *Engine) LockRacers() {
	e.dispatch(func() { e.handleLockRacers() })
}

// StartRace begins the countdown. Fails if no racers are present or a race
// is already underway.
func (e *Engine) StartRace() error {
	var err error
	e.dispatch(func() { err = e.handleStartRace() })
	return err
}

// ResetGame returns to the waiting phase from any phase. Idempotent.
func (e *Engine) ResetGame() {
	e.dispatch(func() { e.handleReset() })
}

// SendRacers sends the current racer list to one client.
func (e *Engine) SendRacers(id string) {
	e.dispatch(func() { e.bc.SendTo(id, MsgRacersList, e.racerList()) })
}

// Phase returns the current race phase.
func (e *Engine) Phase() models.Phase {
	p := models.PhaseWaiting
	e.dispatch(func() { p = e.phase })
	return p
}

// Racers returns a snapshot of the racer roster in join order.
func (e *Engine) Racers() []models.Racer {
	var out []models.Racer
	e.dispatch(func() { out = e.racerList() })
	return out
}

// Bettors returns a snapshot of the bettor roster in join order.
func (e *Engine) Bettors() []models.Bettor {
	var out []models.Bettor
	e.dispatch(func() { out = e.bettorList() })
	return out
}

// --- handlers; everything below runs on the engine goroutine ---

func (e *Engine) handleJoin(id, name, role string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Validation("name must not be empty")
	}
	if role != models.RoleRacer && role != models.RoleBettor {
		return errors.Validationf("invalid role %q: must be %q or %q", role, models.RoleRacer, models.RoleBettor)
	}

	// A rejoin on the same connection replaces the old registration. Only
	// after validation, so a rejected join leaves the roster untouched.
	e.remove(id)

	switch role {
	case models.RoleRacer:
		racer := &models.Racer{
			ID:       id,
			Name:     name,
			Position: 0,
			Color:    colorFor(len(e.racers)),
			Mode:     models.RoleRacer,
		}
		e.racers[id] = racer
		e.racerOrder = append(e.racerOrder, id)

		e.bc.SendTo(id, MsgJoined, models.Joined{PlayerID: id, Color: racer.Color, Mode: models.RoleRacer})
		e.broadcast(MsgPlayersUpdate, e.racerList())
		e.log.Info("Racer joined", "id", id, "name", name)

	case models.RoleBettor:
		e.bettors[id] = &models.Bettor{ID: id, Name: name, Mode: models.RoleBettor}
		e.bettorOrder = append(e.bettorOrder, id)

		e.bc.SendTo(id, MsgJoined, models.Joined{PlayerID: id, Mode: models.RoleBettor})
		e.broadcast(MsgBettorsUpdate, e.bettorList())

		// Late bettors still need the betting universe once it is fixed.
		if e.phase == models.PhaseRacersLocked || e.phase == models.PhaseCountdown || e.phase == models.PhaseRacing {
			e.bc.SendTo(id, MsgRacersLocked, e.racerList())
		}
		e.log.Info("Bettor joined", "id", id, "name", name)
	}

	e.updateRosterGauges()
	return nil
}

func (e *Engine) handleLeave(id string) {
	wasRacer, wasBettor := e.remove(id)
	if wasRacer {
		e.broadcast(MsgPlayersUpdate, e.racerList())
	}
	if wasBettor {
		e.broadcast(MsgBettorsUpdate, e.bettorList())
		// The departed bettor may have been the last holdout.
		if e.allBetsConfirmed() {
			e.broadcast(MsgAllBetsConfirmed, nil)
		}
	}
	if wasRacer || wasBettor {
		e.updateRosterGauges()
		e.log.Info("Participant left", "id", id)
	}
}

// remove deletes a participant from whichever roster holds it, without
// broadcasting.
func (e *Engine) remove(id string) (wasRacer, wasBettor bool) {
	if _, ok := e.racers[id]; ok {
		delete(e.racers, id)
		e.racerOrder = deleteID(e.racerOrder, id)
		wasRacer = true
	}
	if _, ok := e.bettors[id]; ok {
		delete(e.bettors, id)
		e.bettorOrder = deleteID(e.bettorOrder, id)
		wasBettor = true
	}
	return wasRacer, wasBettor
}

func (e *Engine) handleLockRacers() {
	if e.phase != models.PhaseWaiting {
		e.log.Debug("Ignoring lock-racers", "phase", e.phase)
		return
	}
	e.phase = models.PhaseRacersLocked
	e.broadcast(MsgRacersLocked, e.racerList())
	e.log.Info("Racers locked", "racers", len(e.racers))
}

func (e *Engine) handleStartRace() error {
	if e.phase != models.PhaseWaiting && e.phase != models.PhaseRacersLocked {
		return errors.InvalidTransitionf("cannot start race during %s", e.phase)
	}
	if len(e.racers) == 0 {
		return errors.InvalidTransition("cannot start race with no racers")
	}

	for _, racer := range e.racers {
		racer.Position = 0
	}
	e.phase = models.PhaseCountdown
	e.raceGen++
	gen := e.raceGen

	e.mx.RaceStarted()
	e.broadcast(MsgCountdownStart, nil)
	e.log.Info("Countdown started", "racers", len(e.racers), "countdown", e.countdown)

	// The timer fires into a generation check rather than being cancelled:
	// a reset during the countdown bumps raceGen and the fire is discarded.
	timer := e.clock.NewTimer(e.countdown)
	go func() {
		<-timer.Chan()
		e.dispatch(func() { e.beginRacing(gen) })
	}()
	return nil
}

func (e *Engine) beginRacing(gen uint64) {
	if e.phase != models.PhaseCountdown || gen != e.raceGen {
		e.log.Debug("Discarding stale countdown fire", "phase", e.phase, "gen", gen, "current_gen", e.raceGen)
		return
	}
	e.phase = models.PhaseRacing
	e.broadcast(MsgRaceStarted, nil)
	e.log.Info("Race started")
}

func (e *Engine) handleTap(id string) {
	if e.phase != models.PhaseRacing {
		return
	}
	racer, ok := e.racers[id]
	if !ok {
		return
	}

	racer.Position++
	e.mx.TapAccepted()
	e.broadcast(MsgPositionUpdate, models.PositionUpdate{PlayerID: id, Position: racer.Position})
	e.broadcast(MsgOddsUpdate, ComputeOdds(e.racerList()))

	// Only the tapping racer's own crossing can finish the race.
	if racer.Position >= e.finishLine {
		e.finishRace()
	}
}

func (e *Engine) finishRace() {
	e.phase = models.PhaseFinished
	e.mx.RaceFinished()

	results := Results(e.racerList())
	records := Settle(results, e.bettorList(), e.pot)

	// Winner, standings and settlement go out in one message so no client
	// ever sees a finished race without its results.
	e.broadcast(MsgRaceFinished, models.RaceFinished{
		Winner:     results[0],
		Results:    results,
		BetResults: records,
	})
	e.log.Info("Race finished", "winner", results[0].Name, "position", results[0].Position)
}

func (e *Engine) handlePlaceBet(id string, wager models.Wager) error {
	bettor, ok := e.bettors[id]
	if !ok {
		return errors.UnknownParticipantf("no bettor with id %s", id)
	}
	if e.phase == models.PhaseRacing || e.phase == models.PhaseFinished {
		e.mx.WagerRejected()
		return errors.InvalidTransitionf("bets are closed during %s", e.phase)
	}
	if err := validateWager(wager); err != nil {
		e.mx.WagerRejected()
		return err
	}

	bettor.Bets = &models.Wager{Top3: append([]string(nil), wager.Top3...), Last: wager.Last}
	bettor.Confirmed = true
	e.mx.WagerPlaced()
	e.log.Info("Bet placed", "bettor", bettor.Name, "top3", wager.Top3, "last", wager.Last)

	e.broadcast(MsgBettorsUpdate, e.bettorList())
	if e.allBetsConfirmed() {
		e.broadcast(MsgAllBetsConfirmed, nil)
	}
	return nil
}

func validateWager(w models.Wager) error {
	if len(w.Top3) == 0 && w.Last == "" {
		return errors.MalformedWager("wager names no racers")
	}
	if len(w.Top3) > 3 {
		return errors.MalformedWagerf("top3 has %d picks, maximum is 3", len(w.Top3))
	}
	seen := make(map[string]bool, len(w.Top3))
	for _, id := range w.Top3 {
		if id == "" {
			return errors.MalformedWager("top3 contains an empty racer id")
		}
		if seen[id] {
			return errors.MalformedWagerf("racer %s appears twice in top3", id)
		}
		seen[id] = true
	}
	if w.Last != "" && seen[w.Last] {
		return errors.MalformedWagerf("racer %s cannot be both a top pick and last", w.Last)
	}
	return nil
}

func (e *Engine) allBetsConfirmed() bool {
	if len(e.bettors) == 0 {
		return false
	}
	for _, b := range e.bettors {
		if !b.Confirmed {
			return false
		}
	}
	return true
}

func (e *Engine) handleReset() {
	e.phase = models.PhaseWaiting
	e.raceGen++
	for _, racer := range e.racers {
		racer.Position = 0
	}
	for _, bettor := range e.bettors {
		bettor.Bets = nil
		bettor.Confirmed = false
	}

	e.broadcast(MsgGameReset, nil)
	e.broadcast(MsgPlayersUpdate, e.racerList())
	e.broadcast(MsgBettorsUpdate, e.bettorList())
	e.log.Info("Game reset")
}

func (e *Engine) broadcast(msgType string, payload interface{}) {
	e.bc.Broadcast(msgType, payload)
	e.mx.BroadcastSent()
}

// racerList returns value copies of the racers in join order.
func (e *Engine) racerList() []models.Racer {
	out := make([]models.Racer, 0, len(e.racerOrder))
	for _, id := range e.racerOrder {
		out = append(out, *e.racers[id])
	}
	return out
}

// bettorList returns value copies of the bettors in join order.
func (e *Engine) bettorList() []models.Bettor {
	out := make([]models.Bettor, 0, len(e.bettorOrder))
	for _, id := range e.bettorOrder {
		out = append(out, *e.bettors[id])
	}
	return out
}

func (e *Engine) updateRosterGauges() {
	e.mx.SetParticipants(models.RoleRacer, len(e.racers))
	e.mx.SetParticipants(models.RoleBettor, len(e.bettors))
}

func deleteID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
