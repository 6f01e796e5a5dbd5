package usecase

import (
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/valyala/bytebufferpool"
)

// Fingerprint is a digest of the user-visible fields of a snapshot. The zero
// value means nothing has been committed yet.
type Fingerprint string

type fingerprintField struct {
	key   string
	value string
}

// ComputeFingerprint hashes the salient fields in a fixed key order so equal
// snapshots always produce equal fingerprints. The lifecycle phase is part of
// the tuple so a state-only transition still commits and re-arms the cadence.
func ComputeFingerprint(snapshot match.Snapshot) Fingerprint {
	live := snapshot.Live
	fields := [...]fingerprintField{
		{key: "batting.overs", value: strings.TrimSpace(live.Overs)},
		{key: "batting.score", value: strconv.Itoa(live.Score)},
		{key: "batting.wickets", value: strconv.Itoa(live.Wickets)},
		{key: "bowler.figures", value: bowlerFigures(live.Bowler)},
		{key: "non_striker.runs", value: strconv.Itoa(live.NonStriker.Runs)},
		{key: "phase", value: snapshot.Phase().String()},
		{key: "recent.over", value: snapshot.LatestOverBalls()},
		{key: "status", value: strings.TrimSpace(snapshot.Header.Status)},
		{key: "striker.runs", value: strconv.Itoa(live.Striker.Runs)},
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, field := range fields {
		_, _ = buf.WriteString(field.key)
		_ = buf.WriteByte('=')
		_, _ = buf.WriteString(field.value)
		_ = buf.WriteByte('\n')
	}

	sum := xxhash.Sum64(buf.B)
	hex := strconv.FormatUint(sum, 16)
	if pad := 16 - len(hex); pad > 0 {
		hex = strings.Repeat("0", pad) + hex
	}
	return Fingerprint(hex)
}

// ShouldCommit reports whether snapshot differs from the previously committed
// fingerprint, returning the snapshot's fingerprint either way.
func ShouldCommit(prev Fingerprint, snapshot match.Snapshot) (Fingerprint, bool) {
	next := ComputeFingerprint(snapshot)
	return next, next != prev
}

func bowlerFigures(b match.Bowler) string {
	return strings.TrimSpace(b.Name) + " " +
		strings.TrimSpace(b.Overs) + "-" +
		strconv.Itoa(b.Maidens) + "-" +
		strconv.Itoa(b.Runs) + "-" +
		strconv.Itoa(b.Wickets)
}

// ChangeDetector holds the last committed fingerprint of one session. The
// fingerprint only advances through Advance, after a successful commit.
type ChangeDetector struct {
	mu   sync.Mutex
	last Fingerprint
}

func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

func (d *ChangeDetector) Check(snapshot match.Snapshot) (Fingerprint, bool) {
	d.mu.Lock()
	prev := d.last
	d.mu.Unlock()
	return ShouldCommit(prev, snapshot)
}

func (d *ChangeDetector) Advance(fp Fingerprint) {
	d.mu.Lock()
	d.last = fp
	d.mu.Unlock()
}

func (d *ChangeDetector) Last() Fingerprint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *ChangeDetector) Reset() {
	d.Advance("")
}
