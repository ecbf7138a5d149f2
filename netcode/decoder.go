package netcode

import (
	"sort"
	"sync/atomic"
	"time"
)

// Decoder is the receiver-side state machine (spec §4.H): it
// deduplicates incoming source/repair packets, reconstructs lost
// sources either directly (a repair left referencing exactly one
// source) or by inverting a coefficient matrix (several repairs
// covering several missing sources at once), delivers payloads through
// a DataSink — in strict id order if configured — and periodically
// emits acks through a PacketSink.
type Decoder struct {
	gf *Field
	w  uint

	packetSink PacketSink
	dataSink   DataSink

	inOrder       bool
	ackFrequency  time.Duration
	ackNbPackets  uint16

	receivedSources map[uint32]*Source
	repairs         map[uint32]*Repair
	missingSources  map[uint32]map[uint32]*Repair // source id -> set of repairs referencing it, keyed by repair id

	lastSeenID    uint32
	haveLastSeen  bool
	inOrderHold   map[uint32]*Source
	firstMissing  uint32

	packetsSinceAck uint16
	lastAckTime     time.Time

	stats DecoderStats
}

// NewDecoder constructs a decoder over GF(2^w). Defaults match spec
// §6: ack_frequency=100ms, ack_nb_packets disabled (0).
func NewDecoder(w uint, inOrder bool, packetSink PacketSink, dataSink DataSink) (*Decoder, error) {
	gf, err := NewField(w)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		gf:              gf,
		w:               w,
		packetSink:      packetSink,
		dataSink:        dataSink,
		inOrder:         inOrder,
		ackFrequency:    100 * time.Millisecond,
		receivedSources: make(map[uint32]*Source),
		repairs:         make(map[uint32]*Repair),
		missingSources:  make(map[uint32]map[uint32]*Repair),
		inOrderHold:     make(map[uint32]*Source),
		lastAckTime:     time.Now(),
	}, nil
}

// SetAckFrequency sets the time-based ack trigger; 0 disables it.
func (d *Decoder) SetAckFrequency(dur time.Duration) { d.ackFrequency = dur }

// SetAckNbPackets sets the count-based ack trigger; 0 disables it.
func (d *Decoder) SetAckNbPackets(n uint16) { d.ackNbPackets = n }

// Stats returns a snapshot-safe pointer to the running counters.
func (d *Decoder) Stats() *DecoderStats { return &d.stats }

// IngestPacket parses data as a source or repair packet and processes
// it. It returns ErrPacketType for an ack.
func (d *Decoder) IngestPacket(data []byte) error {
	t, err := PeekType(data)
	if err != nil {
		return err
	}
	switch t {
	case PacketSource:
		s, _, err := DecodeSource(data)
		if err != nil {
			return err
		}
		d.onSource(s)
	case PacketRepair:
		r, _, err := DecodeRepair(data)
		if err != nil {
			return err
		}
		d.onRepair(r)
	default:
		return wrapf(ErrPacketType, "decoder.IngestPacket: expected source or repair, got %s", t)
	}
	return nil
}

func (d *Decoder) onSource(s *Source) {
	if d.haveLastSeen && s.ID < d.lastSeenID {
		return // outdated
	}
	if _, ok := d.receivedSources[s.ID]; ok {
		return // duplicate
	}

	d.addSourceRecursive(s, false)
	d.attemptFullDecoding()

	atomic.AddUint64(&d.stats.NbReceivedSources, 1)
	d.considerAck()
}

func (d *Decoder) onRepair(r *Repair) {
	if len(r.SourceIDs) == 0 {
		return
	}
	minID, maxID := r.SourceIDs[0], r.SourceIDs[len(r.SourceIDs)-1]

	if d.haveLastSeen && maxID < d.lastSeenID {
		return // outdated
	}
	if _, ok := d.repairs[r.ID]; ok {
		return // duplicate
	}

	d.pruneBefore(minID)

	allReceived := true
	for _, id := range r.SourceIDs {
		if _, ok := d.receivedSources[id]; !ok {
			allReceived = false
			break
		}
	}
	if allReceived {
		atomic.AddUint64(&d.stats.NbUselessRepairs, 1)
		return
	}

	d.repairs[r.ID] = r

	remaining := make([]uint32, 0, len(r.SourceIDs))
	for i := len(r.SourceIDs) - 1; i >= 0; i-- {
		id := r.SourceIDs[i]
		if src, ok := d.receivedSources[id]; ok {
			d.subtractSource(r, src)
		} else {
			d.registerMissing(id, r)
			remaining = append(remaining, id)
		}
	}
	reverseIDs(remaining)
	r.SourceIDs = remaining

	if len(r.SourceIDs) == 1 {
		rebuilt := d.reconstructSingle(r)
		d.dropRepair(r.ID)
		d.addSourceRecursive(rebuilt, true)
	} else {
		d.attemptFullDecoding()
	}

	atomic.AddUint64(&d.stats.NbReceivedRepairs, 1)
	d.considerAck()
}

// subtractSource removes src's contribution from r: region
// multiply-add with coefficient(r.id, src.id) and XORs the
// corresponding size contribution into r.EncodedSize. It does not
// touch r.SourceIDs — callers are responsible for removing the id.
func (d *Decoder) subtractSource(r *Repair, src *Source) {
	c := Coefficient(r.ID, src.ID, d.w)
	n := minInt(src.Symbol.Len(), r.Symbol.Len())
	d.gf.RegionMultiplyAdd(src.Symbol.Bytes()[:n], r.Symbol.Bytes()[:n], c)
	r.EncodedSize ^= d.gf.MultiplySize(src.UserSize, c)
}

func (d *Decoder) registerMissing(id uint32, r *Repair) {
	set, ok := d.missingSources[id]
	if !ok {
		set = make(map[uint32]*Repair)
		d.missingSources[id] = set
	}
	set[r.ID] = r
}

// dropRepair removes r from every structure referencing it.
func (d *Decoder) dropRepair(repairID uint32) {
	r, ok := d.repairs[repairID]
	if !ok {
		return
	}
	delete(d.repairs, repairID)
	for _, id := range r.SourceIDs {
		if set, ok := d.missingSources[id]; ok {
			delete(set, repairID)
			if len(set) == 0 {
				delete(d.missingSources, id)
			}
		}
	}
}

// reconstructSingle recovers the one remaining source referenced by r
// (spec §4.H "Single-source reconstruction"). The symbol bytes are
// undone with the coefficient's inverse in the codec's own GF(2^w); the
// size is undone with the same coefficient's inverse in the dedicated
// GF(2^16) MultiplySize always uses, since the two fields generally
// don't share a polynomial (and so don't share inverses) except when
// w=16.
func (d *Decoder) reconstructSingle(r *Repair) *Source {
	srcID := r.SourceIDs[0]
	c := Coefficient(r.ID, srcID, d.w)
	inv := d.gf.Invert(c)
	sz := d.gf.MultiplySize(r.EncodedSize, invertSize(c))

	buf := NewBuffer(r.Symbol.Len())
	d.gf.RegionMultiply(r.Symbol.Bytes(), buf.Bytes(), inv)
	return &Source{ID: srcID, UserSize: sz, Symbol: buf}
}

// addSourceRecursive delivers s, records it as received, subtracts its
// contribution from every repair still waiting on it, and — whenever
// that subtraction leaves a repair with exactly one remaining source —
// reconstructs that source too, cascading iteratively (a queue rather
// than true recursion, so a long reconstruction chain can't overflow
// the stack). countDecoded controls whether each item's arrival
// increments nb_decoded individually (the single-repair reconstruction
// path) or is left to the caller to account in bulk (the matrix-decode
// path, which adds k at once).
func (d *Decoder) addSourceRecursive(first *Source, countDecoded bool) {
	type item struct {
		src         *Source
		reconstructed bool
	}
	queue := []item{{first, countDecoded}}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		s := it.src

		d.deliver(s)
		d.receivedSources[s.ID] = s
		if it.reconstructed {
			atomic.AddUint64(&d.stats.NbDecoded, 1)
		}

		if set, ok := d.missingSources[s.ID]; ok {
			for rid, r := range set {
				d.subtractSource(r, s)
				r.SourceIDs = removeID(r.SourceIDs, s.ID)
				if len(r.SourceIDs) == 1 {
					rebuilt := d.reconstructSingle(r)
					d.dropRepair(rid)
					queue = append(queue, item{rebuilt, true})
				}
			}
			delete(d.missingSources, s.ID)
		}
	}
}

// deliver pushes s's payload to the data sink, honoring in-order
// holding when enabled (spec §4.H/§5).
func (d *Decoder) deliver(s *Source) {
	if !d.inOrder {
		d.dataSink(s.Payload())
		return
	}
	switch {
	case s.ID == d.firstMissing:
		d.dataSink(s.Payload())
		d.firstMissing++
		for {
			held, ok := d.inOrderHold[d.firstMissing]
			if !ok {
				break
			}
			d.dataSink(held.Payload())
			delete(d.inOrderHold, d.firstMissing)
			d.firstMissing++
		}
	case s.ID > d.firstMissing:
		d.inOrderHold[s.ID] = s
	}
}

// attemptFullDecoding tries to resolve every currently-missing source
// at once by inverting the coefficient matrix built from the repairs
// on hand (spec §4.H).
//
// Design decision (spec §9 leaves the repairs.size() > missing.size()
// case unspecified): when there are strictly more repairs than missing
// sources, only the first k (ascending repair id) are used to build
// the square system. A successful decoding clears every repair, the
// unused ones included, since all the sources they reference are then
// held — see DESIGN.md. A failed inversion drops only the repair in
// the faulty column and leaves the others for a later attempt.
func (d *Decoder) attemptFullDecoding() {
	k := len(d.missingSources)
	if k == 0 || len(d.repairs) < k {
		return
	}

	missingIDs := sortedKeys(d.missingSources)
	repairIDs := sortedKeys(d.repairs)[:k]

	// Two parallel systems share the same coefficient layout but live in
	// different fields: m/out recovers symbol bytes in the codec's own
	// GF(2^w) (the field RegionMultiplyAdd below operates in), mSize/
	// outSize recovers sizes in the fixed GF(2^16) MultiplySize always
	// operates in. Their inverses generally differ (GF(8) and GF(16)
	// don't share a reduction polynomial), so one matrix can't serve
	// both — see reconstructSingle and DESIGN.md.
	m := NewSquareMatrix(k)
	mSize := NewSquareMatrix(k)
	for i, srcID := range missingIDs {
		for j, rid := range repairIDs {
			r := d.repairs[rid]
			if containsID(r.SourceIDs, srcID) {
				c := Coefficient(rid, srcID, d.w)
				m.Set(i, j, c)
				mSize.Set(i, j, uint32(uint16(c)))
			}
		}
	}

	out := NewSquareMatrix(k)
	if err := Invert(d.gf, m, out); err != nil {
		fail := err.(*InvertFailed)
		atomic.AddUint64(&d.stats.NbFailedFullDecodings, 1)
		d.dropRepair(repairIDs[fail.Column])
		return
	}

	outSize := NewSquareMatrix(k)
	if err := Invert(size16, mSize, outSize); err != nil {
		fail := err.(*InvertFailed)
		atomic.AddUint64(&d.stats.NbFailedFullDecodings, 1)
		d.dropRepair(repairIDs[fail.Column])
		return
	}

	rebuilt := make([]*Source, 0, k)
	for i, srcID := range missingIDs {
		var sz uint16
		for j, rid := range repairIDs {
			c := outSize.At(j, i)
			if c == 0 {
				continue
			}
			sz ^= d.gf.MultiplySize(d.repairs[rid].EncodedSize, c)
		}

		buf := NewZeroBuffer(padLen(int(sz)))
		for j, rid := range repairIDs {
			c := out.At(j, i)
			if c == 0 {
				continue
			}
			rsym := d.repairs[rid].Symbol.Bytes()
			n := minInt(len(rsym), buf.Len())
			d.gf.RegionMultiplyAdd(rsym[:n], buf.Bytes()[:n], c)
		}

		rebuilt = append(rebuilt, &Source{ID: srcID, UserSize: sz, Symbol: &buf.Buffer})
	}

	d.repairs = make(map[uint32]*Repair)
	d.missingSources = make(map[uint32]map[uint32]*Repair)

	for _, s := range rebuilt {
		d.addSourceRecursive(s, false)
	}
	atomic.AddUint64(&d.stats.NbDecoded, uint64(k))
}

// pruneBefore drops every source/missing-source/in-order-hold entry
// with an id strictly smaller than id and every repair whose largest
// source id is strictly smaller than id, and advances
// last_seen_id and first_missing accordingly (spec §4.H).
func (d *Decoder) pruneBefore(id uint32) {
	if !d.haveLastSeen || id > d.lastSeenID {
		d.lastSeenID = id
		d.haveLastSeen = true
	}

	for rid, r := range d.repairs {
		maxID := r.SourceIDs[len(r.SourceIDs)-1]
		if maxID < id {
			d.dropRepair(rid)
		}
	}
	for sid := range d.receivedSources {
		if sid < id {
			delete(d.receivedSources, sid)
		}
	}
	for sid := range d.missingSources {
		if sid < id {
			delete(d.missingSources, sid)
		}
	}
	for sid := range d.inOrderHold {
		if sid < id {
			delete(d.inOrderHold, sid)
		}
	}

	if d.inOrder && d.firstMissing < id {
		d.firstMissing = id
		for {
			held, ok := d.inOrderHold[d.firstMissing]
			if !ok {
				break
			}
			d.dataSink(held.Payload())
			delete(d.inOrderHold, d.firstMissing)
			d.firstMissing++
		}
	}
}

// considerAck emits an ack if either threshold configured via
// SetAckNbPackets/SetAckFrequency has been crossed (spec §4.H).
func (d *Decoder) considerAck() {
	atomic.StoreUint64(&d.stats.NbMissingSources, uint64(len(d.missingSources)))
	d.packetsSinceAck++
	if d.ackNbPackets > 0 && d.packetsSinceAck >= d.ackNbPackets {
		d.GenerateAck()
		return
	}
	if d.ackFrequency > 0 && time.Since(d.lastAckTime) >= d.ackFrequency {
		d.GenerateAck()
	}
}

// GenerateAck builds an ack naming every source id currently held and
// the number of packets received since the previous ack, and emits it
// through the packet sink.
func (d *Decoder) GenerateAck() {
	ids := sortedKeys(d.receivedSources)
	ack := &Ack{SourceIDs: ids, NbPackets: d.packetsSinceAck}
	EncodeAck(d.packetSink, ack)

	d.packetsSinceAck = 0
	d.lastAckTime = time.Now()
	atomic.AddUint64(&d.stats.NbSentAcks, 1)
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsID(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []uint32, id uint32) []uint32 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func reverseIDs(ids []uint32) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
