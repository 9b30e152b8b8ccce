package hypothesis_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hangulab/scriptlive/internal/hypothesis"
)

func TestLogAppendAndSnapshot(t *testing.T) {
	t.Parallel()

	l := hypothesis.NewLog()
	if got := l.Snapshot(); got != "" {
		t.Errorf("empty log snapshot = %q, want empty", got)
	}

	l.Append("오늘")
	l.Append("날씨가 매우")
	l.Append("좋습니다")

	if got, want := l.Snapshot(), "오늘 날씨가 매우 좋습니다"; got != want {
		t.Errorf("snapshot = %q, want %q", got, want)
	}
	if l.Len() != 3 {
		t.Errorf("Len = %d, want 3", l.Len())
	}
}

func TestLogIgnoresBlankFragments(t *testing.T) {
	t.Parallel()

	l := hypothesis.NewLog()
	l.Append("")
	l.Append("   ")
	l.Append("\t\n")
	if l.Len() != 0 {
		t.Errorf("Len = %d after blank appends, want 0", l.Len())
	}
}

func TestLogTrimsFragments(t *testing.T) {
	t.Parallel()

	l := hypothesis.NewLog()
	l.Append("  오늘  ")
	l.Append("날씨가")
	if got, want := l.Snapshot(), "오늘 날씨가"; got != want {
		t.Errorf("snapshot = %q, want %q", got, want)
	}
}

func TestLogReset(t *testing.T) {
	t.Parallel()

	l := hypothesis.NewLog()
	l.Append("오늘")
	l.Reset()
	if l.Len() != 0 || l.Snapshot() != "" {
		t.Errorf("after Reset: Len=%d snapshot=%q, want empty", l.Len(), l.Snapshot())
	}
}

func TestLogConcurrentAppend(t *testing.T) {
	t.Parallel()

	l := hypothesis.NewLog()
	const writers, perWriter = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				l.Append(fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	if l.Len() != writers*perWriter {
		t.Errorf("Len = %d, want %d", l.Len(), writers*perWriter)
	}
	if got := len(strings.Fields(l.Snapshot())); got != writers*perWriter {
		t.Errorf("snapshot has %d fragments, want %d", got, writers*perWriter)
	}
}
