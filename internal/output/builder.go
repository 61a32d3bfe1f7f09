package output

import "github.com/danmuck/macroctl/internal/protocol"

// Builder is a Sink that records commands for an Output response.
type Builder struct {
	commands []protocol.Command
}

func (b *Builder) Write(text string) { b.commands = append(b.commands, protocol.Write{Text: text}) }
func (b *Builder) WriteLine(text string) { b.commands = append(b.commands, protocol.WriteLine{Text: text}) }
func (b *Builder) NewLine() { b.commands = append(b.commands, protocol.NewLine{}) }
func (b *Builder) PushIndent(indent string) { b.commands = append(b.commands, protocol.PushIndent{Indent: indent}) }
func (b *Builder) PopIndent() { b.commands = append(b.commands, protocol.PopIndent{}) }

// Commands returns a copy of what has been recorded so far.
func (b *Builder) Commands() []protocol.Command {
	out := make([]protocol.Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// Generate runs fn against a fresh Builder. A returned error or a panic
// discards the partial output and yields an Error response instead.
func Generate(fn func(Sink) error) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = protocol.Error{Record: protocol.RecordFromPanic(r)}
		}
	}()
	var b Builder
	if err := fn(&b); err != nil {
		return protocol.Error{Record: protocol.RecordFromError(err)}
	}
	return protocol.Output{Commands: b.commands}
}
