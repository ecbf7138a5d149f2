package netcode

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// EncoderStats are the encoder's running counters, updated with
// sync/atomic so Stats() may be polled from a goroutine other than the
// one driving submit_payload/ingest_packet (spec §5), grounded on the
// exported-atomic-uint64-fields idiom of the teacher's vendored
// kcp-go/v5 DefaultSnmp counters.
type EncoderStats struct {
	NbSentSources   uint64
	NbSentRepairs   uint64
	NbReceivedAcks  uint64
	CurrentRate     uint64
}

// Header names the columns in CSV snapshot order, matching ToSlice.
func (s *EncoderStats) Header() []string {
	return []string{"nb_sent_sources", "nb_sent_repairs", "nb_received_acks", "current_rate"}
}

// ToSlice renders the counters as strings, in Header order.
func (s *EncoderStats) ToSlice() []string {
	return []string{
		fmt.Sprint(atomic.LoadUint64(&s.NbSentSources)),
		fmt.Sprint(atomic.LoadUint64(&s.NbSentRepairs)),
		fmt.Sprint(atomic.LoadUint64(&s.NbReceivedAcks)),
		fmt.Sprint(atomic.LoadUint64(&s.CurrentRate)),
	}
}

// DecoderStats are the decoder's running counters (spec §3).
type DecoderStats struct {
	NbReceivedSources       uint64
	NbReceivedRepairs       uint64
	NbSentAcks              uint64
	NbDecoded               uint64
	NbUselessRepairs        uint64
	NbFailedFullDecodings   uint64
	NbMissingSources        uint64
}

// Header names the columns in CSV snapshot order, matching ToSlice.
func (s *DecoderStats) Header() []string {
	return []string{
		"nb_received_sources", "nb_received_repairs", "nb_sent_acks",
		"nb_decoded", "nb_useless_repairs", "nb_failed_full_decodings",
		"nb_missing_sources",
	}
}

// ToSlice renders the counters as strings, in Header order.
func (s *DecoderStats) ToSlice() []string {
	return []string{
		fmt.Sprint(atomic.LoadUint64(&s.NbReceivedSources)),
		fmt.Sprint(atomic.LoadUint64(&s.NbReceivedRepairs)),
		fmt.Sprint(atomic.LoadUint64(&s.NbSentAcks)),
		fmt.Sprint(atomic.LoadUint64(&s.NbDecoded)),
		fmt.Sprint(atomic.LoadUint64(&s.NbUselessRepairs)),
		fmt.Sprint(atomic.LoadUint64(&s.NbFailedFullDecodings)),
		fmt.Sprint(atomic.LoadUint64(&s.NbMissingSources)),
	}
}

// snapshot is the common shape StatsLogger writes periodically.
type snapshot interface {
	Header() []string
	ToSlice() []string
}

// StatsLogger periodically appends a CSV row of a codec's counters to
// path, creating the file (and writing a header row) if it doesn't yet
// exist. path is formatted with time.Now().Format before each open, the
// way the teacher's std/snmp.go SnmpLogger splits a path template into
// a directory and a strftime-style filename. Call Stop to end the
// ticker.
type StatsLogger struct {
	stop chan struct{}
}

// NewStatsLogger starts logging snap to path every interval, in a
// background goroutine. interval <= 0 or path == "" disables logging
// and NewStatsLogger returns nil.
func NewStatsLogger(path string, interval time.Duration, snap snapshot) *StatsLogger {
	if path == "" || interval <= 0 {
		return nil
	}
	l := &StatsLogger{stop: make(chan struct{})}
	go l.run(path, interval, snap)
	return l
}

// Stop ends the background logging goroutine.
func (l *StatsLogger) Stop() {
	if l == nil {
		return
	}
	close(l.stop)
}

func (l *StatsLogger) run(path string, interval time.Duration, snap snapshot) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			logdir, logfile := filepath.Split(path)
			f, err := os.OpenFile(logdir+time.Now().Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				log.Println(err)
				continue
			}
			w := csv.NewWriter(f)
			if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
				if err := w.Write(append([]string{"unix"}, snap.Header()...)); err != nil {
					log.Println(err)
				}
			}
			if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, snap.ToSlice()...)); err != nil {
				log.Println(err)
			}
			w.Flush()
			f.Close()
		}
	}
}
