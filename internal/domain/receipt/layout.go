package receipt

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// Column math is done in terminal cells so that wide currency symbols and
// non-Latin item names keep the right column aligned.

// centerText pads s on the left with floor((width-len)/2) spaces and on the
// right up to width. Text wider than the line is returned as is.
func centerText(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

// rightAlign pads s on the left up to width. Text wider than the line is
// truncated to width.
func rightAlign(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w > width {
		return runewidth.Truncate(s, width, "")
	}
	return strings.Repeat(" ", width-w) + s
}

// formatLine renders left and right on one row of exactly width cells.
// The right column keeps its full width; left is shortened with an ellipsis
// when it does not fit.
func formatLine(left, right string, width int) string {
	if left == "" {
		return rightAlign(right, width)
	}

	rw := runewidth.StringWidth(right)
	if rw > width {
		right = runewidth.Truncate(right, width, "")
		rw = runewidth.StringWidth(right)
	}

	avail := width - rw
	if runewidth.StringWidth(left) > avail {
		if avail <= len(ellipsis) {
			left = strings.Repeat(".", avail)
		} else {
			left = runewidth.Truncate(left, avail, ellipsis)
		}
	}

	pad := width - runewidth.StringWidth(left) - rw
	if pad < 0 {
		pad = 0
	}
	return left + strings.Repeat(" ", pad) + right
}

// divider returns a full row of ch.
func divider(ch rune, width int) string {
	return strings.Repeat(string(ch), width)
}

// layout accumulates receipt rows of a fixed width.
type layout struct {
	width int
	b     strings.Builder
}

func (l *layout) raw(s string) { l.b.WriteString(s) }

func (l *layout) blank() { l.b.WriteByte('\n') }

func (l *layout) row(s string) {
	l.b.WriteString(s)
	l.b.WriteByte('\n')
}

func (l *layout) center(s string) { l.row(centerText(s, l.width)) }

func (l *layout) pair(left, right string) { l.row(formatLine(left, right, l.width)) }

func (l *layout) divider() { l.row(divider('-', l.width)) }

func (l *layout) String() string { return l.b.String() }
