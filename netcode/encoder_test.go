package netcode

import "testing"

type recordedPacket struct {
	kind PacketType
	data []byte
}

func recordPackets(out *[]recordedPacket) PacketSink {
	var cur []byte
	return func(chunk []byte) {
		if chunk == nil {
			t, _ := PeekType(cur)
			*out = append(*out, recordedPacket{kind: t, data: cur})
			cur = nil
			return
		}
		cur = append(cur, chunk...)
	}
}

func TestEncoderSystematicEmitsSourceEveryPayload(t *testing.T) {
	var packets []recordedPacket
	enc, err := NewEncoder(8, recordPackets(&packets))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	enc.SetRate(2)

	for i := 0; i < 4; i++ {
		enc.SubmitPayload([]byte("payload"))
	}

	var sources, repairs int
	for _, p := range packets {
		switch p.kind {
		case PacketSource:
			sources++
		case PacketRepair:
			repairs++
		}
	}
	if sources != 4 {
		t.Fatalf("sources = %d, want 4", sources)
	}
	if repairs != 2 {
		t.Fatalf("repairs = %d, want 2 (rate=2 over 4 submissions)", repairs)
	}
}

func TestEncoderNonSystematicEmitsNoSource(t *testing.T) {
	var packets []recordedPacket
	enc, err := NewEncoder(8, recordPackets(&packets))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	enc.SetCodeType(NonSystematic)
	enc.SetRate(1)

	enc.SubmitPayload([]byte("payload"))

	for _, p := range packets {
		if p.kind == PacketSource {
			t.Fatalf("non-systematic encoder emitted a source packet")
		}
	}
}

func TestEncoderRepairCoversWindow(t *testing.T) {
	var packets []recordedPacket
	enc, err := NewEncoder(8, recordPackets(&packets))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	enc.SetRate(3)

	for i := 0; i < 3; i++ {
		enc.SubmitPayload([]byte("x"))
	}

	var repair *Repair
	for _, p := range packets {
		if p.kind == PacketRepair {
			r, _, err := DecodeRepair(p.data)
			if err != nil {
				t.Fatalf("DecodeRepair: %v", err)
			}
			repair = r
		}
	}
	if repair == nil {
		t.Fatalf("no repair packet emitted")
	}
	want := []uint32{0, 1, 2}
	if len(repair.SourceIDs) != len(want) {
		t.Fatalf("repair.SourceIDs = %v, want %v", repair.SourceIDs, want)
	}
	for i := range want {
		if repair.SourceIDs[i] != want[i] {
			t.Fatalf("repair.SourceIDs = %v, want %v", repair.SourceIDs, want)
		}
	}
}

func TestEncoderIngestAckPrunesWindow(t *testing.T) {
	var packets []recordedPacket
	enc, err := NewEncoder(8, recordPackets(&packets))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	enc.SetRate(100) // avoid auto repair generation interfering with window size checks

	for i := 0; i < 5; i++ {
		enc.SubmitPayload([]byte("x"))
	}
	if enc.Window() != 5 {
		t.Fatalf("Window() = %d, want 5", enc.Window())
	}

	ackPkt := encodePacket(t, func(sink PacketSink) {
		EncodeAck(sink, &Ack{SourceIDs: []uint32{0, 1, 2}, NbPackets: 5})
	})
	if err := enc.IngestPacket(ackPkt); err != nil {
		t.Fatalf("IngestPacket(ack): %v", err)
	}
	if enc.Window() != 2 {
		t.Fatalf("Window() = %d after ack, want 2", enc.Window())
	}
	if enc.Stats().NbReceivedAcks != 1 {
		t.Fatalf("NbReceivedAcks = %d, want 1", enc.Stats().NbReceivedAcks)
	}
}

func TestEncoderIngestRejectsNonAck(t *testing.T) {
	var packets []recordedPacket
	enc, err := NewEncoder(8, recordPackets(&packets))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	pkt := encodePacket(t, func(sink PacketSink) { EncodeSource(sink, NewSource(0, []byte("x"))) })
	if err := enc.IngestPacket(pkt); err == nil {
		t.Fatalf("IngestPacket(source) expected an error")
	}
}

func TestEncoderAdaptiveRateTracksLoss(t *testing.T) {
	var packets []recordedPacket
	enc, err := NewEncoder(8, recordPackets(&packets))
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	enc.SetMaxRate(5)
	enc.SetAdaptive(true)

	// No loss: every packet retained -> rate should climb to max_rate.
	fullAck := &Ack{NbPackets: 10}
	for i := uint32(0); i < 10; i++ {
		fullAck.SourceIDs = append(fullAck.SourceIDs, i)
	}
	if err := enc.IngestPacket(encodePacket(t, func(sink PacketSink) { EncodeAck(sink, fullAck) })); err != nil {
		t.Fatalf("IngestPacket: %v", err)
	}
	if enc.Stats().CurrentRate != uint64(enc.maxRate) {
		t.Fatalf("CurrentRate = %d after zero loss, want max_rate %d", enc.Stats().CurrentRate, enc.maxRate)
	}

	// Heavy loss: half or more of the packets missing -> rate should drop to 1.
	heavyLossAck := &Ack{SourceIDs: []uint32{0, 1}, NbPackets: 10}
	if err := enc.IngestPacket(encodePacket(t, func(sink PacketSink) { EncodeAck(sink, heavyLossAck) })); err != nil {
		t.Fatalf("IngestPacket: %v", err)
	}
	if enc.Stats().CurrentRate != 1 {
		t.Fatalf("CurrentRate = %d after heavy loss, want 1", enc.Stats().CurrentRate)
	}
}
