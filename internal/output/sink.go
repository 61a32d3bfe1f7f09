// Package output turns macro protocol command lists into text and back.
package output

import "github.com/danmuck/macroctl/internal/protocol"

// Sink receives text-output instructions. Every Sink is a
// protocol.CommandVisitor, so commands replay onto it directly.
type Sink interface {
	Write(text string)
	WriteLine(text string)
	NewLine()
	PushIndent(indent string)
	PopIndent()
}

var _ protocol.CommandVisitor = Sink(nil)

// Replay applies commands to sink in order.
func Replay(commands []protocol.Command, sink Sink) {
	for _, c := range commands {
		c.Visit(sink)
	}
}

// CommentIndent prefixes generated lines and rendered errors so they read as
// comments in the target source.
const CommentIndent = "//  "

// RenderResponse writes resp to sink: Output replays its commands, Error
// renders the record tree as comment lines.
func RenderResponse(resp protocol.Response, sink Sink) {
	switch r := resp.(type) {
	case protocol.Output:
		Replay(r.Commands, sink)
	case protocol.Error:
		sink.PushIndent(CommentIndent)
		renderRecord(r.Record, sink)
		sink.PopIndent()
	default:
		sink.PushIndent(CommentIndent)
		kind := "<nil>"
		if resp != nil {
			kind = resp.ResponseKind()
		}
		sink.WriteLine("Unknown type of response " + kind)
		sink.PopIndent()
	}
}

func renderRecord(rec protocol.ExceptionRecord, sink Sink) {
	sink.WriteLine(rec.TypeName + ": " + rec.Message)
	if len(rec.Causes) == 0 {
		return
	}
	sink.PushIndent("    ")
	for _, c := range rec.Causes {
		renderRecord(c, sink)
	}
	sink.PopIndent()
}
