package session

import "encoding/base64"

// Event kinds delivered to subscribers.
const (
	EventError         = "error"
	EventMessage       = "message"
	EventJpegImage     = "jpeg_image"
	EventPrinterStatus = "printer_status"
)

// Event is one unit of fan-out. Exactly one of the payload fields is set,
// matching the Type.
type Event struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Image   string         `json:"image,omitempty"`
	Status  map[string]any `json:"status,omitempty"`
}

// Sink consumes events for one subscriber. Sinks are invoked from transport
// goroutines and must not block.
type Sink func(Event)

func errorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

func messageEvent(message string) Event {
	return Event{Type: EventMessage, Message: message}
}

func imageEvent(frame []byte) Event {
	return Event{Type: EventJpegImage, Image: base64.StdEncoding.EncodeToString(frame)}
}

func statusEvent(fields map[string]any) Event {
	return Event{Type: EventPrinterStatus, Status: fields}
}
