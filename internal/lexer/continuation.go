package lexer

import "strings"

// Columns holds the begin/end/continue column triple an ICTL statement (or
// the fixed defaults) establishes for the rest of the source (§4.1).
// Values are 1-based, as HLASM source documents them; begin0/end0/continue0
// give the 0-based equivalents used internally.
type Columns struct {
	Begin    int
	End      int
	Continue int
}

// DefaultColumns is what applies before any ICTL statement is seen.
var DefaultColumns = Columns{Begin: 1, End: 72, Continue: 16}

func (c Columns) begin0() int    { return c.Begin - 1 }
func (c Columns) end0() int      { return c.End - 1 }
func (c Columns) continue0() int { return c.Continue - 1 }

// LineSource supplies physical source lines by 0-based index.
type LineSource interface {
	Line(n int) (text string, ok bool)
}

// segment records which physical line/column a run of the logical text came
// from, so a logical-text offset can be mapped back to a physical position.
type segment struct {
	logicalStart int
	physLine     int
	physCol      int
}

// LogicalLine is one continuation-joined statement's source text together
// with the information needed to map a logical offset back to its physical
// origin.
type LogicalLine struct {
	Text      string
	StartLine int // first physical line (0-based)
	NextLine  int // physical line index to resume scanning from
	segments  []segment
}

// PhysicalPos maps a byte offset into Text back to a (line, col) pair in
// physical source coordinates (both 0-based).
func (l LogicalLine) PhysicalPos(offset int) (line, col int) {
	seg := l.segments[0]
	for _, s := range l.segments {
		if s.logicalStart > offset {
			break
		}
		seg = s
	}
	return seg.physLine, seg.physCol + (offset - seg.logicalStart)
}

// ReadLogicalLine joins one statement's worth of physical lines starting at
// startLine according to cols, honoring the continuation rule: a non-blank
// character in the end column means the next physical line continues the
// statement starting at the continue column (§4.1). When unlimited is true
// (re-lexing a substituted model statement, a literal's text, or AREAD
// input) the end-column truncation is skipped entirely and the line is
// taken as-is with no continuation scanning.
func ReadLogicalLine(src LineSource, startLine int, cols Columns, unlimited bool) LogicalLine {
	if unlimited {
		text, _ := src.Line(startLine)
		return LogicalLine{
			Text:      text,
			StartLine: startLine,
			NextLine:  startLine + 1,
			segments:  []segment{{logicalStart: 0, physLine: startLine, physCol: 0}},
		}
	}

	var b strings.Builder
	var segs []segment
	line := startLine
	col := cols.begin0()
	for {
		raw, ok := src.Line(line)
		if !ok {
			break
		}
		end := min(len(raw), cols.end0())
		if col > end {
			col = end
		}
		if col < 0 {
			col = 0
		}
		var field string
		if col < end {
			field = raw[col:end]
		}
		segs = append(segs, segment{logicalStart: b.Len(), physLine: line, physCol: col})
		b.WriteString(field)

		continues := len(raw) > cols.end0() && strings.TrimRight(raw[cols.end0():min(len(raw), cols.end0()+1)], " ") != ""
		line++
		if !continues {
			break
		}
		col = cols.continue0()
	}
	return LogicalLine{Text: b.String(), StartLine: startLine, NextLine: line, segments: segs}
}
