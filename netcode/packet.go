package netcode

// PacketType identifies the role of a serialized packet on the wire;
// it is always the first byte (spec §4.D).
type PacketType byte

const (
	PacketAck    PacketType = 0
	PacketRepair PacketType = 1
	PacketSource PacketType = 2
)

func (t PacketType) String() string {
	switch t {
	case PacketAck:
		return "ack"
	case PacketRepair:
		return "repair"
	case PacketSource:
		return "source"
	default:
		return "unknown"
	}
}

// Source is one application payload with a monotonically assigned id.
// Symbol is zero-padded to a 16-byte multiple and is at least UserSize
// bytes long (spec §3).
type Source struct {
	ID       uint32
	UserSize uint16
	Symbol   *Buffer
}

// NewSource builds a Source by copying payload into a freshly allocated,
// 16-byte aligned, zero-padded symbol buffer.
func NewSource(id uint32, payload []byte) *Source {
	padded := padLen(len(payload))
	buf := NewZeroBuffer(padded)
	copy(buf.Bytes(), payload)
	return &Source{ID: id, UserSize: uint16(len(payload)), Symbol: &buf.Buffer}
}

// Payload returns the meaningful (unpadded) bytes of the symbol.
func (s *Source) Payload() []byte {
	return s.Symbol.Bytes()[:s.UserSize]
}

// Repair is a Galois-field linear combination of a set of sources
// (spec §3). SourceIDs is kept sorted ascending throughout its
// lifetime.
type Repair struct {
	ID          uint32
	SourceIDs   []uint32
	EncodedSize uint16
	Symbol      *ZeroBuffer
}

// NewRepair allocates an empty repair with the given id and a
// zero-initialized symbol of the given padded length.
func NewRepair(id uint32, symbolLen int) *Repair {
	return &Repair{
		ID:     id,
		Symbol: NewZeroBuffer(symbolLen),
	}
}

// padLen rounds n up to the next multiple of 16 (the alignment every
// symbol buffer must satisfy), with a minimum of 16 so that a
// zero-length payload still gets a valid aligned, region-op-ready
// buffer.
func padLen(n int) int {
	if n == 0 {
		return alignment
	}
	return (n + alignment - 1) &^ (alignment - 1)
}

// Ack announces the source ids a receiver currently holds and how many
// source+repair packets arrived since the previous ack (spec §3).
type Ack struct {
	SourceIDs []uint32
	NbPackets uint16
}
