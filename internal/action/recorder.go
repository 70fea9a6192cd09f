package action

// Recorder is an API that performs nothing and logs every call in order.
type Recorder struct {
	calls []Call
}

var _ API = (*Recorder)(nil)

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) record(c Call) error {
	r.calls = append(r.calls, c)
	return nil
}

func (r *Recorder) Save(value any) error         { return r.record(SaveCall{Value: value}) }
func (r *Recorder) Navigate(dir Direction) error { return r.record(NavigateCall{Direction: dir}) }
func (r *Recorder) Focus() error                 { return r.record(FocusCall{}) }
func (r *Recorder) Blur() error                  { return r.record(BlurCall{}) }
func (r *Recorder) TakeKeyboard() error          { return r.record(TakeKeyboardCall{}) }
func (r *Recorder) ReleaseKeyboard() error       { return r.record(ReleaseKeyboardCall{}) }
func (r *Recorder) InsertRow(pos Position) error { return r.record(InsertRowCall{Position: pos}) }
func (r *Recorder) DeleteRow() error             { return r.record(DeleteRowCall{}) }

// Veto inspects a call about to be replayed. Returning false skips it.
type Veto func(call Call) bool

// Observer is what plugins see of an action while it is intercepted.
type Observer interface {
	// On registers a veto for every recorded call to method.
	On(method Method, veto Veto)
	// Has reports whether the action recorded a call to method.
	Has(method Method) bool
}

type observer struct {
	recorded map[Method]bool
	vetoes   map[Method][]Veto
}

func newObserver(calls []Call) *observer {
	o := &observer{
		recorded: make(map[Method]bool, len(calls)),
		vetoes:   make(map[Method][]Veto),
	}
	for _, c := range calls {
		o.recorded[c.Method()] = true
	}
	return o
}

func (o *observer) On(method Method, veto Veto) {
	if veto == nil {
		return
	}
	o.vetoes[method] = append(o.vetoes[method], veto)
}

func (o *observer) Has(method Method) bool {
	return o.recorded[method]
}
