package control

import "sync"

// RecordingPointer is a Pointer that records accepted calls. It can be made
// to fail a given kind of call.
type RecordingPointer struct {
	mu     sync.Mutex
	events []Event
	fail   map[EventKind]error
}

// NewRecordingPointer creates an empty RecordingPointer.
func NewRecordingPointer() *RecordingPointer {
	return &RecordingPointer{fail: make(map[EventKind]error)}
}

// Fail makes every call of kind return err. A nil err clears the failure.
func (p *RecordingPointer) Fail(kind EventKind, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, kind)
		return
	}
	p.fail[kind] = err
}

// Events returns a copy of the recorded calls.
func (p *RecordingPointer) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Reset clears the recorded calls.
func (p *RecordingPointer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *RecordingPointer) record(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[ev.Kind]; err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *RecordingPointer) Move(x, y float64) error {
	return p.record(Event{Kind: EventMove, X: x, Y: y})
}

func (p *RecordingPointer) Press(b Button) error {
	return p.record(Event{Kind: EventPress, Button: b})
}

func (p *RecordingPointer) Release(b Button) error {
	return p.record(Event{Kind: EventRelease, Button: b})
}

func (p *RecordingPointer) Scroll(amount float64) error {
	return p.record(Event{Kind: EventScroll, Amount: amount})
}

// RecordingVolume is a Volume that records the levels it is asked to set.
type RecordingVolume struct {
	mu       sync.Mutex
	rng      VolumeRange
	rangeErr error
	setErr   error
	levels   []float64
}

// NewRecordingVolume creates a RecordingVolume reporting r.
func NewRecordingVolume(r VolumeRange) *RecordingVolume {
	return &RecordingVolume{rng: r}
}

// SetErrors configures the errors returned by Range and SetLevel.
func (v *RecordingVolume) SetErrors(rangeErr, setErr error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rangeErr = rangeErr
	v.setErr = setErr
}

// Levels returns a copy of the accepted levels.
func (v *RecordingVolume) Levels() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]float64(nil), v.levels...)
}

func (v *RecordingVolume) Range() (VolumeRange, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rangeErr != nil {
		return VolumeRange{}, v.rangeErr
	}
	return v.rng, nil
}

func (v *RecordingVolume) SetLevel(level float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.setErr != nil {
		return v.setErr
	}
	v.levels = append(v.levels, level)
	return nil
}
