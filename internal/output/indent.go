package output

import (
	"io"
	"strings"
)

// IndentWriter renders sink calls as text. The concatenated indent stack is
// written before the first non-empty text of every line; empty lines stay
// empty. The first write error sticks and suppresses further output.
type IndentWriter struct {
	w           io.Writer
	indents     []string
	prefix      string
	atLineStart bool
	err         error
}

func NewIndentWriter(w io.Writer) *IndentWriter {
	return &IndentWriter{w: w, atLineStart: true}
}

// Err reports the first write error, if any.
func (iw *IndentWriter) Err() error {
	return iw.err
}

func (iw *IndentWriter) emit(s string) {
	if iw.err != nil || s == "" {
		return
	}
	_, iw.err = io.WriteString(iw.w, s)
}

func (iw *IndentWriter) Write(text string) {
	for text != "" {
		line, rest, found := strings.Cut(text, "\n")
		if line != "" {
			if iw.atLineStart {
				iw.emit(iw.prefix)
				iw.atLineStart = false
			}
			iw.emit(line)
		}
		if !found {
			return
		}
		iw.emit("\n")
		iw.atLineStart = true
		text = rest
	}
}

func (iw *IndentWriter) WriteLine(text string) {
	iw.Write(text)
	iw.NewLine()
}

func (iw *IndentWriter) NewLine() {
	iw.emit("\n")
	iw.atLineStart = true
}

func (iw *IndentWriter) PushIndent(indent string) {
	iw.indents = append(iw.indents, indent)
	iw.prefix += indent
}

// PopIndent on an empty stack is ignored.
func (iw *IndentWriter) PopIndent() {
	if len(iw.indents) == 0 {
		return
	}
	last := iw.indents[len(iw.indents)-1]
	iw.indents = iw.indents[:len(iw.indents)-1]
	iw.prefix = iw.prefix[:len(iw.prefix)-len(last)]
}
