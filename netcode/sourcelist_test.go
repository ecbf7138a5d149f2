package netcode

import "testing"

func TestSourceListPushFrontPop(t *testing.T) {
	var l SourceList
	l.PushBack(NewSource(0, []byte("a")))
	l.PushBack(NewSource(1, []byte("b")))
	l.PushBack(NewSource(2, []byte("c")))

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	if l.Front().ID != 0 {
		t.Fatalf("Front().ID = %d, want 0", l.Front().ID)
	}
	popped := l.PopFront()
	if popped.ID != 0 || l.Len() != 2 {
		t.Fatalf("PopFront() = %d, Len() = %d", popped.ID, l.Len())
	}
}

func TestSourceListEraseByIDs(t *testing.T) {
	var l SourceList
	for i := uint32(0); i < 5; i++ {
		l.PushBack(NewSource(i, []byte("x")))
	}
	l.EraseByIDs([]uint32{1, 3})

	got := l.IDs()
	want := []uint32{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", got, want)
		}
	}
}

func TestSourceListEraseByIDsNoMatch(t *testing.T) {
	var l SourceList
	l.PushBack(NewSource(0, []byte("a")))
	l.EraseByIDs([]uint32{99})
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after erasing an id not present", l.Len())
	}
}

func TestSourceListEachAscending(t *testing.T) {
	var l SourceList
	for i := uint32(0); i < 4; i++ {
		l.PushBack(NewSource(i, []byte("x")))
	}
	var seen []uint32
	l.Each(func(s *Source) { seen = append(seen, s.ID) })
	for i, id := range seen {
		if id != uint32(i) {
			t.Fatalf("Each visited out of order: %v", seen)
		}
	}
}
