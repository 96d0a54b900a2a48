// Package seatmap maps linear seat indices of a double-decker bus onto
// physical positions and human-readable seat codes.
package seatmap

import (
	"fmt"
	"slices"
)

// Position is the physical placement of one seat. It is derived on demand
// from (seat index, bus capacity, booked markers) and never stored.
type Position struct {
	Label  string
	Floor  int
	Row    int
	Column rune
	Booked bool
}

// The 20-seat coach interleaves pairs of seats between the floors instead of
// splitting runs of six, so it keeps explicit index tables.
var (
	floor1Seats20 = []int{0, 1, 4, 5, 8, 9, 12, 13, 16, 17}
	floor2Seats20 = []int{2, 3, 6, 7, 10, 11, 14, 15, 18, 19}
)

func layoutFor(totalSeats int) (seatsPerFloor, numColumns int) {
	switch totalSeats {
	case 20:
		return 10, 2
	case 36:
		return 18, 3
	case 42:
		return 21, 3
	default:
		// generic even-capacity fallback
		return totalSeats / 2, 3
	}
}

// Resolve computes the position of the seat at the given global, zero-based
// index in a bus of totalSeats seats. booked holds one marker per seat; a
// non-empty entry means the seat is taken.
//
// Resolve is total: it never fails, and an out-of-range index yields a
// best-effort label rather than an error. Callers own bounds checking.
func Resolve(seatIndex, totalSeats int, booked []string) Position {
	_, numColumns := layoutFor(totalSeats)

	var floor, sub int
	if totalSeats == 20 {
		if i := slices.Index(floor1Seats20, seatIndex); i >= 0 {
			floor, sub = 1, i
		} else {
			floor, sub = 2, slices.Index(floor2Seats20, seatIndex)
		}
	} else {
		// runs of six consecutive seats split 3 front / 3 back
		if pos := seatIndex % 6; pos >= 0 && pos < 3 {
			floor = 1
			sub = seatIndex/6*3 + seatIndex%3
		} else {
			floor = 2
			sub = (seatIndex-3)/6*3 + (seatIndex-3)%3
		}
	}

	row := sub/numColumns + 1
	col := sub % numColumns

	// the 20-seat coach letters columns left to right; larger coaches are
	// mirrored and count down from C
	var colLabel rune
	if totalSeats == 20 {
		colLabel = 'A' + rune(col)
	} else {
		colLabel = 'C' - rune(col)
	}

	return Position{
		Label:  fmt.Sprintf("%c%d-T%d", colLabel, row, floor),
		Floor:  floor,
		Row:    row,
		Column: colLabel,
		Booked: seatIndex >= 0 && seatIndex < len(booked) && booked[seatIndex] != "",
	}
}

// ResolveOrdinal adapts one-based seat numbers, as printed on tickets, to
// the canonical zero-based contract. The historical one-based formatter was
// a diverging near-duplicate of the layout algorithm; call sites go through
// this adapter instead.
func ResolveOrdinal(seatNumber, totalSeats int, booked []string) Position {
	return Resolve(seatNumber-1, totalSeats, booked)
}

// FloorPlan resolves every seat of the bus and groups the positions by
// floor, in seat-index order, for rendering a seat grid.
func FloorPlan(totalSeats int, booked []string) (floor1, floor2 []Position) {
	for i := 0; i < totalSeats; i++ {
		p := Resolve(i, totalSeats, booked)
		if p.Floor == 1 {
			floor1 = append(floor1, p)
		} else {
			floor2 = append(floor2, p)
		}
	}
	return floor1, floor2
}
