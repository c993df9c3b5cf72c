package stomp

import "fmt"

// Event is the typed classification of an inbound server frame, so the
// client never resorts to substring matching on raw text.
type Event interface{ isEvent() }

// Connected confirms the handshake.
type Connected struct {
	Version string
}

// Message carries a payload published to one of the client's topics.
type Message struct {
	Destination  string
	Subscription string
	Body         []byte
}

// Receipt acknowledges a client command (unused by the current server,
// kept so the variant set covers the protocol).
type Receipt struct {
	ID string
}

// Error is a server-reported protocol failure.
type Error struct {
	Message string
	Body    []byte
}

func (Connected) isEvent() {}
func (Message) isEvent()   {}
func (Receipt) isEvent()   {}
func (Error) isEvent()     {}

// Classify maps a parsed server frame to its event variant.
func Classify(f *Frame) (Event, error) {
	switch f.Command {
	case CommandConnected:
		return Connected{Version: f.Header(HeaderVersion)}, nil
	case CommandMessage:
		return Message{
			Destination:  f.Header(HeaderDestination),
			Subscription: f.Header(HeaderSubscription),
			Body:         f.Body,
		}, nil
	case CommandError:
		return Error{Message: f.Header(HeaderMessage), Body: f.Body}, nil
	default:
		return nil, fmt.Errorf("stomp: unexpected server command %q", f.Command)
	}
}
