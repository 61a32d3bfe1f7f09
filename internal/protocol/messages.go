package protocol

// Request is a client-to-server message. Generate is the only request the
// server understands; anything else decoded off the wire gets the fixed
// unknown-request error response.
type Request interface {
	RequestKind() string
}

// Generate asks the server to expand CommandName with Arguments.
type Generate struct {
	CommandName string
	Arguments   []string
}

func (Generate) RequestKind() string { return "Generate" }

// Response is a server-to-client message.
type Response interface {
	ResponseKind() string
}

// Output carries the generated text as an ordered command list.
type Output struct {
	Commands []Command
}

func (Output) ResponseKind() string { return "Output" }

// Error carries a failure raised by the service.
type Error struct {
	Record ExceptionRecord
}

func (Error) ResponseKind() string { return "Error" }

// CommandVisitor receives one callback per output command.
type CommandVisitor interface {
	Write(text string)
	WriteLine(text string)
	NewLine()
	PushIndent(indent string)
	PopIndent()
}

// Command is one text-output instruction.
type Command interface {
	Visit(v CommandVisitor)
}

type Write struct {
	Text string
}

func (c Write) Visit(v CommandVisitor) { v.Write(c.Text) }

type WriteLine struct {
	Text string
}

func (c WriteLine) Visit(v CommandVisitor) { v.WriteLine(c.Text) }

type NewLine struct{}

func (NewLine) Visit(v CommandVisitor) { v.NewLine() }

type PushIndent struct {
	Indent string
}

func (c PushIndent) Visit(v CommandVisitor) { v.PushIndent(c.Indent) }

type PopIndent struct{}

func (PopIndent) Visit(v CommandVisitor) { v.PopIndent() }
