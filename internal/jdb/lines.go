package jdb

// LineBuffer accumulates raw console output and keeps it split into logical
// lines. Lines may end in \r\n, \n or \r; the final line may be partial (jdb
// prompts are never newline terminated). The split is recomputed from the raw
// bytes after every change so chunk boundaries never matter.
type LineBuffer struct {
	raw   []byte
	lines []string
	ends  []int // ends[i] is the raw offset just past line i and its terminator
}

// Feed appends a chunk and recomputes the logical lines.
func (b *LineBuffer) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.raw = append(b.raw, chunk...)
	b.split()
}

// Lines returns the current logical lines. The slice must not be modified.
func (b *LineBuffer) Lines() []string { return b.lines }

// Last returns the most recent line, or "" when the buffer is empty.
func (b *LineBuffer) Last() string {
	if len(b.lines) == 0 {
		return ""
	}
	return b.lines[len(b.lines)-1]
}

// Len returns the number of logical lines.
func (b *LineBuffer) Len() int { return len(b.lines) }

// Text returns the unconsumed raw text.
func (b *LineBuffer) Text() string { return string(b.raw) }

// Consume drops the first n logical lines, keeping whatever follows them.
func (b *LineBuffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.lines) {
		b.Reset()
		return
	}
	b.raw = append([]byte(nil), b.raw[b.ends[n-1]:]...)
	b.split()
}

// Reset discards everything buffered.
func (b *LineBuffer) Reset() {
	b.raw = nil
	b.lines = nil
	b.ends = nil
}

func (b *LineBuffer) split() {
	b.lines = b.lines[:0]
	b.ends = b.ends[:0]
	start := 0
	for i := 0; i < len(b.raw); i++ {
		switch b.raw[i] {
		case '\n':
			b.lines = append(b.lines, string(b.raw[start:i]))
			b.ends = append(b.ends, i+1)
			start = i + 1
		case '\r':
			end := i + 1
			if end < len(b.raw) && b.raw[end] == '\n' {
				end++
			}
			b.lines = append(b.lines, string(b.raw[start:i]))
			b.ends = append(b.ends, end)
			start = end
			i = end - 1
		}
	}
	if start < len(b.raw) {
		b.lines = append(b.lines, string(b.raw[start:]))
		b.ends = append(b.ends, len(b.raw))
	}
}
