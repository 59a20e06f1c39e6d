// Package wire is the UDP ingress for the OSC-style control protocol. Each
// datagram carries one addressed command; every command elicits exactly one
// response datagram back to the sender, either the operation's ack address or
// /error with a human-readable reason.
package wire

import (
	"strings"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/dispatch"
)

// parseDatagram splits a datagram into its address and typed arguments.
// Format: the address token first, then whitespace-separated arguments.
func parseDatagram(data []byte) (string, []command.Arg) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", nil
	}
	args := make([]command.Arg, 0, len(fields)-1)
	for _, tok := range fields[1:] {
		args = append(args, command.ParseArg(tok))
	}
	return fields[0], args
}

// formatAck renders an acknowledgement as a response datagram.
func formatAck(ack *dispatch.Ack) []byte {
	var sb strings.Builder
	sb.WriteString(ack.Address)
	for _, a := range ack.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.AsString())
	}
	return []byte(sb.String())
}

// errorResponse renders a failure as the /error response datagram.
func errorResponse(err error) []byte {
	return []byte("/error " + err.Error())
}
