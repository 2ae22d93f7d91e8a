// Package datagen produces the synthetic datapoints emitted by generators.
package datagen

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownKind is returned for a kind missing from the kind table.
var ErrUnknownKind = errors.New("unknown generator kind")

// Value is one datapoint. Field returns the textual form of a named field for
// format-string encoding; values also marshal to JSON with their own tags.
type Value interface {
	Field(name string) (string, bool)
}

// Source produces one value per tick for the given virtual time.
type Source interface {
	Kind() string
	Next(at time.Time) Value
}

// Constructor builds a seeded source.
type Constructor func(seed int64) Source

var kinds = map[string]Constructor{
	"Temperature": NewTemperature,
	"Power":       NewPower,
	"TaxiFares":   NewTaxiFares,
	"TaxiRides":   NewTaxiRides,
	"HeartRate":   NewHeartRate,
}

// IsKind reports whether kind names a known source.
func IsKind(kind string) bool {
	_, ok := kinds[kind]
	return ok
}

// Kinds lists the known kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New constructs the source for kind.
func New(kind string, seed int64) (Source, error) {
	c, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownKind, kind, strings.Join(Kinds(), ", "))
	}
	return c(seed), nil
}

// base carries what every source shares.
type base struct {
	kind string
	rng  *rand.Rand
}

func newBase(kind string, seed int64) base {
	return base{kind: kind, rng: rand.New(rand.NewSource(seed))}
}

func (b base) Kind() string { return b.kind }

// between returns a float in [from, to).
func (b base) between(from, to float64) float64 {
	return from + (to-from)*b.rng.Float64()
}

// intn returns an int in [from, to).
func (b base) intn(from, to int) int {
	return from + b.rng.Intn(to-from)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Point holds the fields every datapoint carries.
type Point struct {
	Date      time.Time `json:"date"`
	Timestamp int64     `json:"timestamp"`
	Unit      string    `json:"unit"`
}

func newPoint(at time.Time, unit string) Point {
	at = at.UTC()
	return Point{Date: at, Timestamp: at.UnixMilli(), Unit: unit}
}

func (p Point) field(name string) (string, bool) {
	switch name {
	case "date":
		return p.Date.Format(time.RFC3339), true
	case "timestamp":
		return formatInt(p.Timestamp), true
	case "unit":
		return p.Unit, true
	}
	return "", false
}
