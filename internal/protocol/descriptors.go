package protocol

import (
	"github.com/danmuck/macroctl/internal/typetraits"
)

const (
	TokenNewLine   typetraits.HashToken = 0x2328467F
	TokenPopIndent typetraits.HashToken = 0xCA798ABC
)

// Descriptors is the immutable set of message descriptors shared by every
// connection of a process.
type Descriptors struct {
	Request         *typetraits.Union[Request]
	Response        *typetraits.Union[Response]
	Command         *typetraits.Union[Command]
	ExceptionRecord typetraits.Descriptor[ExceptionRecord]

	RequestAdapter         typetraits.Adapter[Request]
	ResponseAdapter        typetraits.Adapter[Response]
	CommandAdapter         typetraits.Adapter[Command]
	ExceptionRecordAdapter typetraits.Adapter[ExceptionRecord]
}

type descriptorOptions struct {
	extraRequests []typetraits.UnionCase[Request]
}

type DescriptorOption func(*descriptorOptions)

// WithRequestCases appends request cases after Generate. Servers built from
// the default registry answer these with the unknown-request error.
func WithRequestCases(cases ...typetraits.UnionCase[Request]) DescriptorOption {
	return func(o *descriptorOptions) {
		o.extraRequests = append(o.extraRequests, cases...)
	}
}

func NewDescriptors(opts ...DescriptorOption) *Descriptors {
	var o descriptorOptions
	for _, opt := range opts {
		opt(&o)
	}

	str := typetraits.String()

	record := typetraits.Recursive(func(self typetraits.Descriptor[ExceptionRecord]) typetraits.Descriptor[ExceptionRecord] {
		return typetraits.Convert(
			func(r ExceptionRecord) typetraits.Tuple3[string, string, []ExceptionRecord] {
				return typetraits.MakeTuple3(r.TypeName, r.Message, r.Causes)
			},
			typetraits.Tuple3Of(str, str, typetraits.ListOf(self)),
			func(t typetraits.Tuple3[string, string, []ExceptionRecord]) ExceptionRecord {
				return ExceptionRecord{TypeName: t.First, Message: t.Second, Causes: t.Third}
			},
		)
	})

	command := typetraits.MustUnion(
		typetraits.Case[Command]("Write", typetraits.Convert(
			func(c Write) string { return c.Text }, str, func(s string) Write { return Write{Text: s} },
		)),
		typetraits.Case[Command]("WriteLine", typetraits.Convert(
			func(c WriteLine) string { return c.Text }, str, func(s string) WriteLine { return WriteLine{Text: s} },
		)),
		typetraits.Case[Command]("NewLine", typetraits.Unit(TokenNewLine, NewLine{})),
		typetraits.Case[Command]("PushIndent", typetraits.Convert(
			func(c PushIndent) string { return c.Indent }, str, func(s string) PushIndent { return PushIndent{Indent: s} },
		)),
		typetraits.Case[Command]("PopIndent", typetraits.Unit(TokenPopIndent, PopIndent{})),
	)

	requestCases := []typetraits.UnionCase[Request]{
		typetraits.Case[Request]("Generate", typetraits.Convert(
			func(g Generate) typetraits.Tuple2[string, []string] {
				return typetraits.MakeTuple2(g.CommandName, g.Arguments)
			},
			typetraits.Tuple2Of(str, typetraits.ListOf(str)),
			func(t typetraits.Tuple2[string, []string]) Generate {
				return Generate{CommandName: t.First, Arguments: t.Second}
			},
		)),
	}
	request := typetraits.MustUnion(append(requestCases, o.extraRequests...)...)

	response := typetraits.MustUnion(
		typetraits.Case[Response]("Output", typetraits.Convert(
			func(r Output) []Command { return r.Commands },
			typetraits.ListOf[Command](command),
			func(c []Command) Output { return Output{Commands: c} },
		)),
		typetraits.Case[Response]("Error", typetraits.Convert(
			func(r Error) ExceptionRecord { return r.Record },
			record,
			func(rec ExceptionRecord) Error { return Error{Record: rec} },
		)),
	)

	return &Descriptors{
		Request:         request,
		Response:        response,
		Command:         command,
		ExceptionRecord: record,

		RequestAdapter:         typetraits.NewAdapter[Request](request),
		ResponseAdapter:        typetraits.NewAdapter[Response](response),
		CommandAdapter:         typetraits.NewAdapter[Command](command),
		ExceptionRecordAdapter: typetraits.NewAdapter(record),
	}
}
