package netcode

import "encoding/binary"

// PacketSink receives the serialized bytes of one packet. The encoder
// calls it repeatedly with fragments of the packet as it is built, then
// once more with a zero-length chunk to mark the end of the packet
// (spec §4.D); the sink is free to coalesce the fragments into a single
// datagram or forward each one as it arrives.
type PacketSink func(chunk []byte)

// DataSink receives one fully delivered source payload.
type DataSink func(payload []byte)

const (
	sourceHeaderLen = 1 + 4 + 2       // type + id + user_size
	repairFixedLen  = 1 + 4 + 2 + 2 + 2 // type + id + nb_ids + encoded_size + symbol_len
	ackFixedLen     = 1 + 2 + 2       // type + nb_ids + nb_packets
)

// PeekType reads the packet type byte without consuming anything else.
func PeekType(data []byte) (PacketType, error) {
	if len(data) < 1 {
		return 0, wrapf(ErrOverflow, "peek packet type")
	}
	t := PacketType(data[0])
	switch t {
	case PacketAck, PacketRepair, PacketSource:
		return t, nil
	default:
		return 0, wrapf(ErrPacketType, "unknown type byte %d", data[0])
	}
}

// EncodeSource serializes s and feeds it to sink.
func EncodeSource(sink PacketSink, s *Source) {
	var hdr [sourceHeaderLen]byte
	hdr[0] = byte(PacketSource)
	binary.BigEndian.PutUint32(hdr[1:5], s.ID)
	binary.BigEndian.PutUint16(hdr[5:7], s.UserSize)
	sink(hdr[:])
	sink(s.Payload())
	sink(nil)
}

// DecodeSource parses a source packet from data, returning the number
// of bytes consumed.
func DecodeSource(data []byte) (*Source, int, error) {
	if len(data) < sourceHeaderLen {
		return nil, 0, wrapf(ErrOverflow, "decode source: header")
	}
	if PacketType(data[0]) != PacketSource {
		return nil, 0, wrapf(ErrPacketType, "decode source: type byte %d", data[0])
	}
	id := binary.BigEndian.Uint32(data[1:5])
	userSize := binary.BigEndian.Uint16(data[5:7])
	end := sourceHeaderLen + int(userSize)
	if len(data) < end {
		return nil, 0, wrapf(ErrOverflow, "decode source: payload")
	}
	return NewSource(id, data[sourceHeaderLen:end]), end, nil
}

// EncodeRepair serializes r and feeds it to sink.
func EncodeRepair(sink PacketSink, r *Repair) {
	var hdr [1 + 4 + 2]byte
	hdr[0] = byte(PacketRepair)
	binary.BigEndian.PutUint32(hdr[1:5], r.ID)
	binary.BigEndian.PutUint16(hdr[5:7], uint16(len(r.SourceIDs)))
	sink(hdr[:])

	if len(r.SourceIDs) > 0 {
		ids := make([]byte, 4*len(r.SourceIDs))
		for i, id := range r.SourceIDs {
			binary.BigEndian.PutUint32(ids[i*4:], id)
		}
		sink(ids)
	}

	var tail [2 + 2]byte
	binary.BigEndian.PutUint16(tail[0:2], r.EncodedSize)
	binary.BigEndian.PutUint16(tail[2:4], uint16(r.Symbol.Len()))
	sink(tail[:])
	sink(r.Symbol.Bytes())
	sink(nil)
}

// DecodeRepair parses a repair packet from data, returning the number
// of bytes consumed.
func DecodeRepair(data []byte) (*Repair, int, error) {
	if len(data) < 1+4+2 {
		return nil, 0, wrapf(ErrOverflow, "decode repair: header")
	}
	if PacketType(data[0]) != PacketRepair {
		return nil, 0, wrapf(ErrPacketType, "decode repair: type byte %d", data[0])
	}
	off := 1
	id := binary.BigEndian.Uint32(data[off:])
	off += 4
	nbIDs := int(binary.BigEndian.Uint16(data[off:]))
	off += 2

	if len(data) < off+4*nbIDs+2+2 {
		return nil, 0, wrapf(ErrOverflow, "decode repair: source_ids/trailer")
	}
	ids := make([]uint32, nbIDs)
	for i := 0; i < nbIDs; i++ {
		ids[i] = binary.BigEndian.Uint32(data[off:])
		off += 4
	}

	encodedSize := binary.BigEndian.Uint16(data[off:])
	off += 2
	symbolLen := int(binary.BigEndian.Uint16(data[off:]))
	off += 2

	if len(data) < off+symbolLen {
		return nil, 0, wrapf(ErrOverflow, "decode repair: symbol")
	}

	r := NewRepair(id, symbolLen)
	copy(r.Symbol.Bytes(), data[off:off+symbolLen])
	off += symbolLen
	r.SourceIDs = ids
	r.EncodedSize = encodedSize
	return r, off, nil
}

// EncodeAck serializes a and feeds it to sink.
func EncodeAck(sink PacketSink, a *Ack) {
	var hdr [1 + 2]byte
	hdr[0] = byte(PacketAck)
	binary.BigEndian.PutUint16(hdr[1:3], uint16(len(a.SourceIDs)))
	sink(hdr[:])

	if len(a.SourceIDs) > 0 {
		ids := make([]byte, 4*len(a.SourceIDs))
		for i, id := range a.SourceIDs {
			binary.BigEndian.PutUint32(ids[i*4:], id)
		}
		sink(ids)
	}

	var tail [2]byte
	binary.BigEndian.PutUint16(tail[:], a.NbPackets)
	sink(tail[:])
	sink(nil)
}

// DecodeAck parses an ack packet from data, returning the number of
// bytes consumed.
func DecodeAck(data []byte) (*Ack, int, error) {
	if len(data) < 1+2 {
		return nil, 0, wrapf(ErrOverflow, "decode ack: header")
	}
	if PacketType(data[0]) != PacketAck {
		return nil, 0, wrapf(ErrPacketType, "decode ack: type byte %d", data[0])
	}
	off := 1
	nbIDs := int(binary.BigEndian.Uint16(data[off:]))
	off += 2

	if len(data) < off+4*nbIDs+2 {
		return nil, 0, wrapf(ErrOverflow, "decode ack: source_ids/nb_packets")
	}
	ids := make([]uint32, nbIDs)
	for i := 0; i < nbIDs; i++ {
		ids[i] = binary.BigEndian.Uint32(data[off:])
		off += 4
	}
	nbPackets := binary.BigEndian.Uint16(data[off:])
	off += 2

	return &Ack{SourceIDs: ids, NbPackets: nbPackets}, off, nil
}
