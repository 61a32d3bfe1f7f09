package protocol

import "errors"

var ErrProtocol = errors.New("protocol: violation")

// ProtocolError reports a peer that broke the request/response or EOF
// handshake.
type ProtocolError struct {
	Message string
}

func NewProtocolError(msg string) *ProtocolError {
	return &ProtocolError{Message: msg}
}

func (e *ProtocolError) Error() string {
	return "protocol: " + e.Message
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

const (
	MsgResponseNotReceived = "response not received"
	MsgUnexpectedEOFReply  = "unexpected response to EOF"
)
