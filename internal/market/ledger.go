package market

import (
	"sort"
	"time"
)

// StakeEntry records one participant's cumulative stake on one side of a market.
type StakeEntry struct {
	Participant string    `json:"participant"`
	Side        Side      `json:"side"`
	Amount      uint64    `json:"amount"`
	PlacedAt    time.Time `json:"placed_at"`
}

// StakeLedger is the per-market stake bookkeeping. It is owned by exactly one
// Market and is not safe for concurrent use on its own: every method must be
// called with the owning market's lock held.
//
// Invariant: TotalFor(SideYes) + TotalFor(SideNo) equals the sum of all live
// entry amounts at all times. Clear is the only operation that reduces a total
// and only the settlement path calls it.
type StakeLedger struct {
	entries map[string]map[Side]*StakeEntry
	totals  map[Side]uint64
	claimed map[string]bool
}

// NewStakeLedger creates an empty stake ledger.
func NewStakeLedger() *StakeLedger {
	return &StakeLedger{
		entries: make(map[string]map[Side]*StakeEntry),
		totals:  make(map[Side]uint64),
		claimed: make(map[string]bool),
	}
}

// Record increments the stake entry for (participant, side) and the side total.
func (l *StakeLedger) Record(participant string, side Side, amount uint64, at time.Time) {
	sides, ok := l.entries[participant]
	if !ok {
		sides = make(map[Side]*StakeEntry)
		l.entries[participant] = sides
	}
	entry, ok := sides[side]
	if !ok {
		entry = &StakeEntry{Participant: participant, Side: side, PlacedAt: at}
		sides[side] = entry
	}
	entry.Amount += amount
	l.totals[side] += amount
}

// TotalFor returns the live pool total for one side.
func (l *StakeLedger) TotalFor(side Side) uint64 {
	return l.totals[side]
}

// StakeOf returns the live stake of a participant on one side.
func (l *StakeLedger) StakeOf(participant string, side Side) uint64 {
	if entry, ok := l.entries[participant][side]; ok {
		return entry.Amount
	}
	return 0
}

// HasStaked reports whether the participant ever recorded a stake.
func (l *StakeLedger) HasStaked(participant string) bool {
	_, ok := l.entries[participant]
	return ok
}

// HasClaimed reports whether the participant's entries were already cleared.
func (l *StakeLedger) HasClaimed(participant string) bool {
	return l.claimed[participant]
}

// Clear zeroes both of a participant's entries exactly once and marks the
// participant claimed. It returns the cleared amounts so a failed outbound
// transfer can be rolled back with Restore.
func (l *StakeLedger) Clear(participant string) (yes, no uint64) {
	sides := l.entries[participant]
	if entry, ok := sides[SideYes]; ok {
		yes = entry.Amount
		l.totals[SideYes] -= yes
		entry.Amount = 0
	}
	if entry, ok := sides[SideNo]; ok {
		no = entry.Amount
		l.totals[SideNo] -= no
		entry.Amount = 0
	}
	l.claimed[participant] = true
	return yes, no
}

// Restore reverses a Clear after an external transfer failure.
func (l *StakeLedger) Restore(participant string, yes, no uint64) {
	if yes > 0 {
		l.entries[participant][SideYes].Amount = yes
		l.totals[SideYes] += yes
	}
	if no > 0 {
		l.entries[participant][SideNo].Amount = no
		l.totals[SideNo] += no
	}
	delete(l.claimed, participant)
}

// Participants returns every participant that ever staked, in a stable order.
func (l *StakeLedger) Participants() []string {
	out := make([]string, 0, len(l.entries))
	for p := range l.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LiveSum returns the sum of all live entry amounts. Used by invariant checks.
func (l *StakeLedger) LiveSum() uint64 {
	var sum uint64
	for _, sides := range l.entries {
		for _, entry := range sides {
			sum += entry.Amount
		}
	}
	return sum
}

// Entries returns copies of all entries, claimed participants included.
func (l *StakeLedger) Entries() []StakeEntry {
	out := make([]StakeEntry, 0, len(l.entries)*2)
	for _, p := range l.Participants() {
		for _, side := range []Side{SideYes, SideNo} {
			if entry, ok := l.entries[p][side]; ok {
				out = append(out, *entry)
			}
		}
	}
	return out
}

// ClaimedParticipants returns participants whose entries were cleared.
func (l *StakeLedger) ClaimedParticipants() []string {
	out := make([]string, 0, len(l.claimed))
	for p := range l.claimed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
