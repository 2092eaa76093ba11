// internal/sim/engine.go
package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// minTickFloor is the smallest allowed scheduling granularity.
// Anything shorter would busy-loop the ticker.
const minTickFloor = 10 * time.Millisecond

// DefaultInterval is the fallback per-point refresh interval.
const DefaultInterval = 500 * time.Millisecond

// bitPoint is one simulated coil or discrete input.
type bitPoint struct {
	value     bool
	lastValue bool
	dynamics  *Dynamics
	interval  time.Duration
	nextDue   time.Time
}

// wordPoint is one simulated holding or input register.
type wordPoint struct {
	value     uint16
	lastValue uint16
	dynamics  *Dynamics
	interval  time.Duration
	nextDue   time.Time
}

// BitPoint configures one coil or discrete input at startup.
type BitPoint struct {
	Address  uint16
	Initial  bool
	Interval time.Duration // 0 means the engine default
	Dynamics *Dynamics
}

// WordPoint configures one holding or input register at startup.
type WordPoint struct {
	Address  uint16
	Initial  uint16
	Interval time.Duration // 0 means the engine default
	Dynamics *Dynamics
}

// Options carries the full initial address space and engine settings.
type Options struct {
	DefaultInterval time.Duration // 0 means DefaultInterval
	LogValueUpdates bool
	Logger          zerolog.Logger

	Coils            []BitPoint
	DiscreteInputs   []BitPoint
	HoldingRegisters []WordPoint
	InputRegisters   []WordPoint

	// Start pins the time origin; zero means time.Now(). Tests use
	// it together with explicit Advance timestamps.
	Start time.Time

	// Seed pins the randomness for RandomWalk and Noise; 0 means a
	// time-derived seed.
	Seed int64
}

// Engine owns the four sparse address spaces and is the only mutation
// path into them. One RWMutex guards everything; no other lock exists
// in the core and no network I/O happens while it is held.
type Engine struct {
	mu sync.RWMutex

	coils     map[uint16]*bitPoint
	discretes map[uint16]*bitPoint
	holding   map[uint16]*wordPoint
	inputs    map[uint16]*wordPoint

	defaultInterval time.Duration
	logUpdates      bool
	log             zerolog.Logger
	start           time.Time
	minTick         time.Duration
	rng             *rand.Rand
}

// NewEngine builds the address spaces from startup configuration.
// Every configured point gets nextDue = start + its own interval.
// Points are never deleted afterwards; writes may add more.
func NewEngine(opts Options) *Engine {
	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}
	def := opts.DefaultInterval
	if def <= 0 {
		def = DefaultInterval
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		coils:           make(map[uint16]*bitPoint, len(opts.Coils)),
		discretes:       make(map[uint16]*bitPoint, len(opts.DiscreteInputs)),
		holding:         make(map[uint16]*wordPoint, len(opts.HoldingRegisters)),
		inputs:          make(map[uint16]*wordPoint, len(opts.InputRegisters)),
		defaultInterval: def,
		logUpdates:      opts.LogValueUpdates,
		log:             opts.Logger,
		start:           start,
		rng:             rand.New(rand.NewSource(seed)),
	}

	for _, p := range opts.Coils {
		e.coils[p.Address] = newBitPoint(p, def, start)
	}
	for _, p := range opts.DiscreteInputs {
		e.discretes[p.Address] = newBitPoint(p, def, start)
	}
	for _, p := range opts.HoldingRegisters {
		e.holding[p.Address] = newWordPoint(p, def, start)
	}
	for _, p := range opts.InputRegisters {
		e.inputs[p.Address] = newWordPoint(p, def, start)
	}

	e.minTick = e.computeMinTick()
	return e
}

func newBitPoint(p BitPoint, def time.Duration, start time.Time) *bitPoint {
	interval := p.Interval
	if interval <= 0 {
		interval = def
	}
	return &bitPoint{
		value:     p.Initial,
		lastValue: p.Initial,
		dynamics:  p.Dynamics,
		interval:  interval,
		nextDue:   start.Add(interval),
	}
}

func newWordPoint(p WordPoint, def time.Duration, start time.Time) *wordPoint {
	interval := p.Interval
	if interval <= 0 {
		interval = def
	}
	return &wordPoint{
		value:     p.Initial,
		lastValue: p.Initial,
		dynamics:  p.Dynamics,
		interval:  interval,
		nextDue:   start.Add(interval),
	}
}

// computeMinTick derives the ticker period: the minimum of the default
// interval and every configured point's interval, floored at
// minTickFloor. Computed once at construction; points created later by
// writes are static and never need evaluation.
func (e *Engine) computeMinTick() time.Duration {
	min := floorTick(e.defaultInterval)
	for _, p := range e.coils {
		min = minDuration(min, floorTick(p.interval))
	}
	for _, p := range e.discretes {
		min = minDuration(min, floorTick(p.interval))
	}
	for _, p := range e.holding {
		min = minDuration(min, floorTick(p.interval))
	}
	for _, p := range e.inputs {
		min = minDuration(min, floorTick(p.interval))
	}
	return min
}

// MinTickInterval returns the scheduling granularity for the ticker.
func (e *Engine) MinTickInterval() time.Duration {
	return e.minTick
}

// Advance re-evaluates every point whose schedule has come due at or
// before now. Each due point gets a fresh value from its dynamics,
// lastValue is rotated, and nextDue moves to now + interval (relative
// to the evaluation time, so a late tick is absorbed, not made up).
// Cost is one pass over the address spaces.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.start).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	e.advanceBits(e.coils, spaceCoil, now, elapsed)
	e.advanceBits(e.discretes, spaceDiscrete, now, elapsed)
	e.advanceWords(e.holding, spaceHolding, now, elapsed)
	e.advanceWords(e.inputs, spaceInput, now, elapsed)
}

func (e *Engine) advanceBits(m map[uint16]*bitPoint, space string, now time.Time, elapsed float64) {
	for addr, p := range m {
		if now.Before(p.nextDue) {
			continue
		}
		value := evalBit(p.value, p.dynamics, elapsed, e.rng)
		changed := value != p.value
		p.lastValue = p.value
		p.value = value
		p.nextDue = now.Add(p.interval)
		if e.logUpdates && changed {
			e.log.Info().
				Str("space", space).
				Uint16("address", addr).
				Bool("value", value).
				Msg("point updated")
		}
	}
}

func (e *Engine) advanceWords(m map[uint16]*wordPoint, space string, now time.Time, elapsed float64) {
	for addr, p := range m {
		if now.Before(p.nextDue) {
			continue
		}
		value := evalWord(p.value, p.dynamics, elapsed, e.rng)
		changed := value != p.value
		p.lastValue = p.value
		p.value = value
		p.nextDue = now.Add(p.interval)
		if e.logUpdates && changed {
			e.log.Info().
				Str("space", space).
				Uint16("address", addr).
				Uint16("value", value).
				Msg("point updated")
		}
	}
}

const (
	spaceCoil     = "coil"
	spaceDiscrete = "discrete_input"
	spaceHolding  = "holding_register"
	spaceInput    = "input_register"
)

// ---- READS ----
//
// Reads substitute the class default (false / 0) for unmapped
// addresses and never materialize an entry.

// ReadCoils returns count coil values starting at addr.
func (e *Engine) ReadCoils(addr, count uint16) []bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return readBits(e.coils, addr, count)
}

// ReadDiscreteInputs returns count discrete input values starting at addr.
func (e *Engine) ReadDiscreteInputs(addr, count uint16) []bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return readBits(e.discretes, addr, count)
}

// ReadHoldingRegisters returns count holding register values starting at addr.
func (e *Engine) ReadHoldingRegisters(addr, count uint16) []uint16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return readWords(e.holding, addr, count)
}

// ReadInputRegisters returns count input register values starting at addr.
func (e *Engine) ReadInputRegisters(addr, count uint16) []uint16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return readWords(e.inputs, addr, count)
}

func readBits(m map[uint16]*bitPoint, addr, count uint16) []bool {
	out := make([]bool, 0, count)
	for i := uint16(0); i < count; i++ {
		if p, ok := m[offsetAddr(addr, i)]; ok {
			out = append(out, p.value)
		} else {
			out = append(out, false)
		}
	}
	return out
}

func readWords(m map[uint16]*wordPoint, addr, count uint16) []uint16 {
	out := make([]uint16, 0, count)
	for i := uint16(0); i < count; i++ {
		if p, ok := m[offsetAddr(addr, i)]; ok {
			out = append(out, p.value)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// ---- WRITES ----
//
// A write to a mapped point replaces value only; dynamics, interval
// and schedule are untouched, so the written value persists until the
// point's next evaluation. A write to an unmapped address materializes
// a static point on the default interval: externally-created points
// stay stable forever.

// WriteCoil upserts one coil.
func (e *Engine) WriteCoil(addr uint16, value bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writeBit(e.coils, addr, value)
}

// WriteCoils applies the single-write rule to each value in turn.
func (e *Engine) WriteCoils(addr uint16, values []bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range values {
		e.writeBit(e.coils, offsetAddr(addr, uint16(i)), v)
	}
}

// WriteHoldingRegister upserts one holding register.
func (e *Engine) WriteHoldingRegister(addr uint16, value uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writeWord(e.holding, addr, value)
}

// WriteHoldingRegisters applies the single-write rule to each value in turn.
func (e *Engine) WriteHoldingRegisters(addr uint16, values []uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range values {
		e.writeWord(e.holding, offsetAddr(addr, uint16(i)), v)
	}
}

func (e *Engine) writeBit(m map[uint16]*bitPoint, addr uint16, value bool) {
	if p, ok := m[addr]; ok {
		p.value = value
		return
	}
	m[addr] = &bitPoint{
		value:     value,
		lastValue: value,
		interval:  e.defaultInterval,
		nextDue:   time.Now().Add(e.defaultInterval),
	}
}

func (e *Engine) writeWord(m map[uint16]*wordPoint, addr uint16, value uint16) {
	if p, ok := m[addr]; ok {
		p.value = value
		return
	}
	m[addr] = &wordPoint{
		value:     value,
		lastValue: value,
		interval:  e.defaultInterval,
		nextDue:   time.Now().Add(e.defaultInterval),
	}
}

// offsetAddr applies a range offset to a base address. Address
// arithmetic saturates at the top of the 16-bit space on both the
// read and write paths: a range crossing 0xFFFF collapses its tail
// onto the last address instead of wrapping.
func offsetAddr(base, offset uint16) uint16 {
	a := uint32(base) + uint32(offset)
	if a > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(a)
}

func floorTick(d time.Duration) time.Duration {
	if d < minTickFloor {
		return minTickFloor
	}
	return d
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
