// Package command parses addressed control messages into a closed set of
// typed operations. Both the UDP wire ingress and the HTTP fallback feed
// through Parse, so the two transports share one grammar and one state
// machine behind it.
package command

import (
	"fmt"
	"strings"
)

// Kind enumerates the supported operations.
type Kind int

const (
	KindLoadEvent Kind = iota
	KindLoadCue
	KindStartMain
	KindStopMain
	KindResetMain
	KindStartSub
	KindStopSub
	KindStatus
	KindCueList
)

func (k Kind) String() string {
	switch k {
	case KindLoadEvent:
		return "load_event"
	case KindLoadCue:
		return "load_cue"
	case KindStartMain:
		return "start_main"
	case KindStopMain:
		return "stop_main"
	case KindResetMain:
		return "reset_main"
	case KindStartSub:
		return "start_sub"
	case KindStopSub:
		return "stop_sub"
	case KindStatus:
		return "status"
	case KindCueList:
		return "list_cues"
	default:
		return "unknown"
	}
}

// Op is one resolved operation. EventID is set only for LoadEvent; Token only
// for the cue-addressed kinds.
type Op struct {
	Kind    Kind
	EventID int64
	Token   string
}

// UnknownError reports an address outside the grammar. It is echoed back to
// the sender, never silently dropped.
type UnknownError struct {
	Address string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown command: %q", e.Address)
}

// MalformedError reports bad argument arity or type for a recognized
// address. It is a local parse failure and never reaches the dispatcher.
type MalformedError struct {
	Address string
	Reason  string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed arguments for %q: %s", e.Address, e.Reason)
}

// Parse resolves an address plus arguments against the fixed grammar:
//
//	set-event <id>                 load an event's schedule snapshot
//	cue/<token>/load               load a cue
//	cue/load <token>               alternate calling convention, same op
//	timer/start | stop | reset     generic main-timer control
//	subtimer/cue/<token>/start     start a sub-cue timer
//	subtimer/cue/<token>/stop      stop a sub-cue timer
//	subtimer/start <token>         alternate calling convention, same ops;
//	subtimer/stop <token>          carries tokens the address form cannot
//	status                         read-only state query
//	list-cues                      read-only cue listing
func Parse(address string, args []Arg) (Op, error) {
	segs := strings.Split(strings.Trim(strings.TrimSpace(address), "/"), "/")
	if len(segs) == 1 && segs[0] == "" {
		return Op{}, &UnknownError{Address: address}
	}

	switch segs[0] {
	case "set-event":
		if len(segs) != 1 {
			return Op{}, &UnknownError{Address: address}
		}
		if len(args) != 1 {
			return Op{}, &MalformedError{Address: address, Reason: "expected exactly one event id argument"}
		}
		id, ok := args[0].AsInt()
		if !ok || id <= 0 {
			return Op{}, &MalformedError{Address: address, Reason: "event id must be a positive integer"}
		}
		return Op{Kind: KindLoadEvent, EventID: id}, nil

	case "cue":
		switch {
		case len(segs) == 2 && segs[1] == "load":
			if len(args) != 1 {
				return Op{}, &MalformedError{Address: address, Reason: "expected exactly one cue token argument"}
			}
			token := args[0].AsString()
			if token == "" {
				return Op{}, &MalformedError{Address: address, Reason: "cue token must not be empty"}
			}
			return Op{Kind: KindLoadCue, Token: token}, nil
		case len(segs) == 3 && segs[2] == "load":
			if len(args) != 0 {
				return Op{}, &MalformedError{Address: address, Reason: "cue/<token>/load takes no arguments"}
			}
			return Op{Kind: KindLoadCue, Token: segs[1]}, nil
		}
		return Op{}, &UnknownError{Address: address}

	case "timer":
		if len(segs) != 2 {
			return Op{}, &UnknownError{Address: address}
		}
		if len(args) != 0 {
			return Op{}, &MalformedError{Address: address, Reason: "timer commands take no arguments"}
		}
		switch segs[1] {
		case "start":
			return Op{Kind: KindStartMain}, nil
		case "stop":
			return Op{Kind: KindStopMain}, nil
		case "reset":
			return Op{Kind: KindResetMain}, nil
		}
		return Op{}, &UnknownError{Address: address}

	case "subtimer":
		// Argument form: the token travels as an argument, so labels with
		// slashes or spaces survive.
		if len(segs) == 2 && (segs[1] == "start" || segs[1] == "stop") {
			if len(args) != 1 {
				return Op{}, &MalformedError{Address: address, Reason: "expected exactly one cue token argument"}
			}
			token := args[0].AsString()
			if token == "" {
				return Op{}, &MalformedError{Address: address, Reason: "cue token must not be empty"}
			}
			if segs[1] == "start" {
				return Op{Kind: KindStartSub, Token: token}, nil
			}
			return Op{Kind: KindStopSub, Token: token}, nil
		}

		if len(segs) != 4 || segs[1] != "cue" {
			return Op{}, &UnknownError{Address: address}
		}
		if len(args) != 0 {
			return Op{}, &MalformedError{Address: address, Reason: "subtimer commands take no arguments"}
		}
		switch segs[3] {
		case "start":
			return Op{Kind: KindStartSub, Token: segs[2]}, nil
		case "stop":
			return Op{Kind: KindStopSub, Token: segs[2]}, nil
		}
		return Op{}, &UnknownError{Address: address}

	case "status":
		if len(segs) != 1 {
			return Op{}, &UnknownError{Address: address}
		}
		if len(args) != 0 {
			return Op{}, &MalformedError{Address: address, Reason: "status takes no arguments"}
		}
		return Op{Kind: KindStatus}, nil

	case "list-cues":
		if len(segs) != 1 {
			return Op{}, &UnknownError{Address: address}
		}
		if len(args) != 0 {
			return Op{}, &MalformedError{Address: address, Reason: "list-cues takes no arguments"}
		}
		return Op{Kind: KindCueList}, nil
	}

	return Op{}, &UnknownError{Address: address}
}
