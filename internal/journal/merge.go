package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/pathutil"
)

// MergedFileName is skipped when merging so a previous export kept in the
// type folder is never merged into itself.
const MergedFileName = "merged_journal.txt"

// MergeSeparator is written between consecutive entries.
const MergeSeparator = "\n" + "==================================================" + "\n\n"

// Merge concatenates every entry of entryType into w, ordered by the natural
// sort of their file names, with MergeSeparator between entries. It returns
// the number of entries written.
func (s *Store) Merge(ctx context.Context, entryType string, w io.Writer) (int, error) {
	dir, err := pathutil.JoinSegments(s.root.JournalDir(), entryType)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, entryExt) || name == MergedFileName {
			continue
		}
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return i, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return i, err
		}
		if i < len(names)-1 {
			if _, err := io.WriteString(w, MergeSeparator); err != nil {
				return i, err
			}
		}
		s.logger.Debug("merged journal entry", zap.String("file", name), zap.Int("index", i+1))
	}
	return len(names), nil
}

// naturalLess compares names chunk by chunk: digit runs by numeric value,
// everything else case-insensitively.
func naturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		xn, xerr := strconv.ParseUint(x, 10, 64)
		yn, yerr := strconv.ParseUint(y, 10, 64)
		switch {
		case xerr == nil && yerr == nil:
			if xn != yn {
				return xn < yn
			}
		default:
			xl, yl := strings.ToLower(x), strings.ToLower(y)
			if xl != yl {
				return xl < yl
			}
		}
	}
	return len(ca) < len(cb)
}

// chunks splits s into alternating runs of ASCII digits and everything else.
func chunks(s string) []string {
	var out []string
	start := 0
	for i := 1; i < len(s); i++ {
		if isDigit(s[i]) != isDigit(s[i-1]) {
			out = append(out, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
