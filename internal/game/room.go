package game

import (
	"time"

	"github.com/lox/twentyone/internal/deck"
)

// Table limits.
const (
	MinSeats = 2
	MaxSeats = 5
)

// DealerID is the player id reserved for the synthetic dealer seat.
const DealerID int64 = 0

// DealerName is the display name of the dealer seat.
const DealerName = "Dealer"

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusClosed  Status = "closed"
)

// Open reports whether the room counts against the open-room limit.
func (s Status) Open() bool {
	return s == StatusWaiting || s == StatusPlaying
}

// Room is one game session, identified by its code.
type Room struct {
	Code     string
	HostID   int64
	MaxSeats int
	Stake    int64
	Status   Status
	// Deck holds the undealt cards while playing, in deal order.
	Deck []deck.Card
	// Turn indexes the join-ordered non-dealer seats; TurnSeq increases on
	// every prompt so stale submissions can be told apart.
	Turn      int
	TurnSeq   int
	HandID    string
	CreatedAt time.Time
}

// SeatState is where a seat stands within the current hand.
type SeatState string

const (
	SeatActive      SeatState = "active"
	SeatStood       SeatState = "stood"
	SeatBusted      SeatState = "busted"
	SeatSurrendered SeatState = "surrendered"
	SeatLeft        SeatState = "left"
)

// Stopped reports whether the seat is finished acting for this hand.
func (s SeatState) Stopped() bool {
	return s != SeatActive
}

// Forfeited reports whether the seat gave up its stake before settlement.
func (s SeatState) Forfeited() bool {
	return s == SeatSurrendered || s == SeatLeft
}

// Seat is a player's participation in a room.
type Seat struct {
	RoomCode string
	PlayerID int64
	Name     string
	Hand     []deck.Card
	State    SeatState
	// Stake is the amount escrowed when the seat was taken.
	Stake    int64
	JoinedAt time.Time
}

// Value returns the current hand value.
func (s Seat) Value() int {
	return HandValue(s.Hand)
}

// IsDealer reports whether this is the synthetic dealer seat.
func (s Seat) IsDealer() bool {
	return s.PlayerID == DealerID
}

// Players returns the non-dealer seats in the order given.
func Players(seats []Seat) []Seat {
	players := make([]Seat, 0, len(seats))
	for _, s := range seats {
		if !s.IsDealer() {
			players = append(players, s)
		}
	}
	return players
}

// FindDealer returns the dealer seat, if one has been added.
func FindDealer(seats []Seat) (Seat, bool) {
	for _, s := range seats {
		if s.IsDealer() {
			return s, true
		}
	}
	return Seat{}, false
}

// NextActive returns the index of the first active seat at or after from, or
// len(players) when none remains.
func NextActive(players []Seat, from int) int {
	for i := from; i < len(players); i++ {
		if players[i].State == SeatActive {
			return i
		}
	}
	return len(players)
}
