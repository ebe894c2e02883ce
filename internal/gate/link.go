package gate

import (
	"bufio"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"parkgate-service/internal/domain/parking"
)

// Link is one line-oriented hardware channel to a gate controller board.
// Commands go out one line at a time; decoded sensor events arrive on
// Events. Lines that fail to decode are discarded at this boundary and
// never surface as errors.
type Link interface {
	Send(cmd parking.GateCommand) error
	Events() <-chan parking.GateEvent
	Close() error
}

// SerialLink drives the controller firmware over a serial device.
type SerialLink struct {
	port    serial.Port
	events  chan parking.GateEvent
	writeMu sync.Mutex
	log     zerolog.Logger
}

// OpenSerialLink opens the device and starts the read pump. A device that
// cannot be opened is a startup-time hard error for this gate only.
func OpenSerialLink(device string, baudRate int, log zerolog.Logger) (*SerialLink, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open gate link %s: %w", device, err)
	}

	l := &SerialLink{
		port:   port,
		events: make(chan parking.GateEvent, 16),
		log:    log,
	}
	go l.readLoop()
	return l, nil
}

func (l *SerialLink) readLoop() {
	scanner := bufio.NewScanner(l.port)
	for scanner.Scan() {
		line := scanner.Text()
		event := parking.ParseGateEvent(line)
		if event == parking.EventNone {
			if line != "" {
				l.log.Debug().Str("line", line).Msg("ignoring unrecognized line from gate link")
			}
			continue
		}
		select {
		case l.events <- event:
		default:
			// Nobody waiting and the buffer is full; stale sensor
			// events are worthless, drop them.
		}
	}
	close(l.events)
}

func (l *SerialLink) Send(cmd parking.GateCommand) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if _, err := l.port.Write([]byte(string(cmd) + "\n")); err != nil {
		return fmt.Errorf("failed to write %s to gate link: %w", cmd, err)
	}
	return nil
}

func (l *SerialLink) Events() <-chan parking.GateEvent {
	return l.events
}

func (l *SerialLink) Close() error {
	return l.port.Close()
}
