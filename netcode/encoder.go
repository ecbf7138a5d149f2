package netcode

import "sync/atomic"

// CodeType selects whether the encoder emits source packets alongside
// repairs (Systematic) or only repairs (NonSystematic) (spec §3/§6).
type CodeType int

const (
	Systematic CodeType = iota
	NonSystematic
)

// Encoder is the sender-side state machine (spec §4.G): it allocates
// source ids, holds a sliding window of outstanding sources, emits
// source and repair packets through a PacketSink, ingests acks to
// shrink its window, and optionally adapts its repair rate to observed
// loss.
type Encoder struct {
	gf *Field
	w  uint

	sink PacketSink

	codeType     CodeType
	rate         uint32
	maxRate      uint32
	adaptive     bool
	windowLimit  uint32

	nextSourceID uint32
	nextRepairID uint32
	window       SourceList

	stats EncoderStats
}

// NewEncoder constructs an encoder over GF(2^w) (w in {4,8,16,32}) that
// feeds serialized packets to sink. Defaults match spec §6:
// rate=5, window_limit=unbounded, code=systematic, adaptive=false.
func NewEncoder(w uint, sink PacketSink) (*Encoder, error) {
	gf, err := NewField(w)
	if err != nil {
		return nil, err
	}
	e := &Encoder{
		gf:          gf,
		w:           w,
		sink:        sink,
		codeType:    Systematic,
		rate:        5,
		maxRate:     5,
		windowLimit: 0, // 0 means unbounded
	}
	atomic.StoreUint64(&e.stats.CurrentRate, uint64(e.rate))
	return e, nil
}

// SetRate sets how many sources are submitted between repairs (rate>=1:
// a repair is emitted every time next_source_id becomes a multiple of
// rate). When adaptive mode is enabled this is the starting point,
// subsequently overridden by IngestPacket's rate adaptation.
func (e *Encoder) SetRate(r uint32) {
	if r < 1 {
		r = 1
	}
	e.rate = r
	atomic.StoreUint64(&e.stats.CurrentRate, uint64(r))
}

// SetMaxRate sets the ceiling used by adaptive rate control.
func (e *Encoder) SetMaxRate(r uint32) {
	if r < 1 {
		r = 1
	}
	e.maxRate = r
}

// SetWindowSize sets the maximum number of outstanding sources; once
// exceeded, the oldest source is dropped on the next submission. 0
// disables the cap.
func (e *Encoder) SetWindowSize(n uint32) { e.windowLimit = n }

// SetCodeType selects Systematic or NonSystematic emission.
func (e *Encoder) SetCodeType(t CodeType) { e.codeType = t }

// SetAdaptive enables or disables adaptive rate control.
func (e *Encoder) SetAdaptive(b bool) { e.adaptive = b }

// Window returns the number of sources currently held (observational).
func (e *Encoder) Window() int { return e.window.Len() }

// Stats returns a snapshot-safe pointer to the running counters.
func (e *Encoder) Stats() *EncoderStats { return &e.stats }

// SubmitPayload takes ownership of payload, allocates the next source
// id, appends it to the window, and — depending on code type and
// rate — emits a source packet and/or a repair (spec §4.G).
func (e *Encoder) SubmitPayload(payload []byte) {
	id := e.nextSourceID
	e.nextSourceID++

	src := NewSource(id, payload)
	e.window.PushBack(src)

	if e.codeType == Systematic {
		EncodeSource(e.sink, src)
	}

	if e.windowLimit > 0 && uint32(e.window.Len()) > e.windowLimit {
		e.window.PopFront()
	}

	atomic.AddUint64(&e.stats.NbSentSources, 1)

	if e.nextSourceID%e.rate == 0 {
		e.GenerateRepair()
	}
}

// GenerateRepair builds a repair over every source currently in the
// window and emits it (spec §4.G). It is safe to call directly (e.g.
// to force an out-of-band repair), though SubmitPayload calls it
// automatically at rate boundaries.
func (e *Encoder) GenerateRepair() {
	if e.window.Len() == 0 {
		return
	}

	maxLen := 0
	e.window.Each(func(s *Source) {
		if s.Symbol.Len() > maxLen {
			maxLen = s.Symbol.Len()
		}
	})

	id := e.nextRepairID
	e.nextRepairID++

	r := NewRepair(id, maxLen)
	r.SourceIDs = make([]uint32, 0, e.window.Len())

	e.window.Each(func(s *Source) {
		c := Coefficient(id, s.ID, e.w)
		e.gf.RegionMultiplyAdd(padTo(s.Symbol.Bytes(), maxLen), r.Symbol.Bytes(), c)
		r.EncodedSize ^= e.gf.MultiplySize(s.UserSize, c)
		r.SourceIDs = append(r.SourceIDs, s.ID)
	})

	EncodeRepair(e.sink, r)
	atomic.AddUint64(&e.stats.NbSentRepairs, 1)
}

// padTo returns src zero-extended to n bytes. Sources in the window can
// have different user sizes, and therefore different padded symbol
// lengths; GenerateRepair combines them at the width of the widest one
// in the current window, so any narrower symbol needs a temporary
// zero-extended view before the region multiply-add.
func padTo(src []byte, n int) []byte {
	if len(src) == n {
		return src
	}
	out := make([]byte, n)
	copy(out, src)
	return out
}

// IngestPacket parses data as an ack, prunes every acknowledged id from
// the window, and feeds the packet count into rate adaptation.
// IngestPacket returns ErrPacketType if data is not an ack.
func (e *Encoder) IngestPacket(data []byte) error {
	t, err := PeekType(data)
	if err != nil {
		return err
	}
	if t != PacketAck {
		return wrapf(ErrPacketType, "encoder.IngestPacket: expected ack, got %s", t)
	}

	ack, _, err := DecodeAck(data)
	if err != nil {
		return err
	}

	e.window.EraseByIDs(ack.SourceIDs)
	atomic.AddUint64(&e.stats.NbReceivedAcks, 1)

	if e.adaptive {
		e.adapt(ack)
	}
	return nil
}

// adapt maps the observed retained fraction K/N (K = len(ack.SourceIDs),
// N = ack.NbPackets) to a rate in [1, maxRate]: zero loss keeps
// rate=maxRate, 50%+ loss drops to rate=1, linearly in between (spec
// §4.G). N==0 leaves the rate untouched (no signal).
func (e *Encoder) adapt(ack *Ack) {
	if ack.NbPackets == 0 {
		return
	}
	retained := float64(len(ack.SourceIDs)) / float64(ack.NbPackets)
	loss := 1 - retained
	if loss < 0 {
		loss = 0
	}
	if loss > 0.5 {
		loss = 0.5
	}

	// loss=0 -> scale=1 (rate=maxRate); loss=0.5 -> scale=0 (rate=1).
	scale := 1 - loss/0.5
	rate := uint32(float64(e.maxRate-1)*scale+0.5) + 1
	if rate < 1 {
		rate = 1
	}
	if rate > e.maxRate {
		rate = e.maxRate
	}
	e.rate = rate
	atomic.StoreUint64(&e.stats.CurrentRate, uint64(e.rate))
}
