// Package game holds the rules of room-based "21": the room and seat model,
// hand values with soft aces, the closed set of turn actions, dealer
// auto-play, and settlement of a finished hand.
//
// Everything here is pure. Persistence, locking, and notification live in
// the room package, which drives these types through a transactional store.
//
// # Hand values
//
// Face cards count 10, numeric cards count at face and aces start at 11.
// While a hand is over 21 and still holds an ace counted as 11, that ace is
// softened to 1:
//
//	game.HandValue(deck.MustParseCards("A♠,A♥,9♦")) // 21
//	game.HandValue(deck.MustParseCards("10♠,10♥,5♦")) // 25, bust
//
// # Settlement
//
// Settle evaluates every non-dealer seat in a fixed priority order: forfeited
// seats are skipped, busted seats lose, a forced dealer win beats every other
// seat, a busted dealer pays everyone still standing, and otherwise values
// are compared. Winning seats are paid their stake minus a fixed commission.
package game
