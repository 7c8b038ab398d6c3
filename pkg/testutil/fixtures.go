package testutil

import (
	"fmt"
)

// LocationFixture describes a location to register in tests
type LocationFixture struct {
	Aisle    string
	Bay      string
	Level    string
	Type     string
	Capacity *int
}

// StockFixture describes a case lot to receive in tests
type StockFixture struct {
	LWIN18      string
	Owner       string
	LotNumber   string
	Cases       int
	ProductName string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Location creates a rack location fixture in aisle A with a fresh bay
func (f *FixtureFactory) Location(opts ...func(*LocationFixture)) LocationFixture {
	seq := f.nextSeq()
	loc := LocationFixture{
		Aisle: "A",
		Bay:   fmt.Sprintf("%02d", seq),
		Level: "00",
		Type:  "rack",
	}
	for _, opt := range opts {
		opt(&loc)
	}
	return loc
}

// WithLocationType sets the location type
func WithLocationType(locationType string) func(*LocationFixture) {
	return func(l *LocationFixture) {
		l.Type = locationType
	}
}

// WithCoordinates sets aisle, bay and level
func WithCoordinates(aisle, bay, level string) func(*LocationFixture) {
	return func(l *LocationFixture) {
		l.Aisle = aisle
		l.Bay = bay
		l.Level = level
	}
}

// Stock creates a stock fixture. Each call yields a different vintage of
// the same wine so LWIN18 codes stay unique.
func (f *FixtureFactory) Stock(opts ...func(*StockFixture)) StockFixture {
	seq := f.nextSeq()
	s := StockFixture{
		LWIN18:      fmt.Sprintf("1010279%04d06%05d", 1990+seq%100, 750),
		Owner:       "owner-1",
		Cases:       10,
		ProductName: fmt.Sprintf("Test Wine %d", seq),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLWIN18 sets the product code
func WithLWIN18(code string) func(*StockFixture) {
	return func(s *StockFixture) {
		s.LWIN18 = code
	}
}

// WithCases sets the case count
func WithCases(n int) func(*StockFixture) {
	return func(s *StockFixture) {
		s.Cases = n
	}
}

// WithOwner sets the stock owner
func WithOwner(owner string) func(*StockFixture) {
	return func(s *StockFixture) {
		s.Owner = owner
	}
}

// WithLot sets the lot number
func WithLot(lot string) func(*StockFixture) {
	return func(s *StockFixture) {
		s.LotNumber = lot
	}
}
