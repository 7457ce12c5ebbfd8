package copytrade

import (
	"testing"

	"github.com/betbot/polycopy/internal/activity"
)

func recs(hashes ...string) []activity.Record {
	out := make([]activity.Record, len(hashes))
	for i, h := range hashes {
		out[i] = activity.Record{TransactionHash: h, Type: activity.TypeTrade, Side: "BUY", Asset: "tok-" + h}
	}
	return out
}

func hashes(rs []activity.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.TransactionHash
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLedger_Filter(t *testing.T) {
	tests := []struct {
		name  string
		known []string
		batch []string
		want  []string
	}{
		{"new entries keep feed order", []string{"h3", "h2", "h1"}, []string{"h5", "h4", "h3", "h2", "h1"}, []string{"h5", "h4"}},
		{"all known", []string{"a", "b"}, []string{"b", "a"}, []string{}},
		{"empty hash dropped", nil, []string{"x", "", "y"}, []string{"x", "y"}},
		{"duplicates in batch collapse to first", nil, []string{"x", "y", "x"}, []string{"x", "y"}},
		{"empty batch", []string{"a"}, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(100)
			for _, h := range tt.known {
				l.Mark(h)
			}
			got := hashes(l.Filter(recs(tt.batch...)))
			if !equalStrings(got, tt.want) {
				t.Fatalf("Filter()=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestLedger_EvictsOldest(t *testing.T) {
	l := NewLedger(3)
	for _, h := range []string{"a", "b", "c", "d"} {
		l.Mark(h)
	}
	if l.Len() != 3 {
		t.Fatalf("len=%d, want 3", l.Len())
	}
	if l.Contains("a") {
		t.Fatalf("oldest entry should be evicted")
	}
	for _, h := range []string{"b", "c", "d"} {
		if !l.Contains(h) {
			t.Fatalf("%s should be retained", h)
		}
	}

	// 重复写入不改变顺序
	l.Mark("b")
	l.Mark("e")
	if l.Contains("b") || !l.Contains("c") || !l.Contains("e") {
		t.Fatalf("unexpected contents after re-mark: b=%v c=%v e=%v", l.Contains("b"), l.Contains("c"), l.Contains("e"))
	}
}

func TestLedger_SeedKeepsNewest(t *testing.T) {
	l := NewLedger(2)
	n := l.Seed(recs("h3", "h2", "h1")) // 新到旧
	if n != 3 {
		t.Fatalf("seeded=%d, want 3", n)
	}
	if !l.Contains("h3") || !l.Contains("h2") || l.Contains("h1") {
		t.Fatalf("newest hashes should survive seeding")
	}
}
