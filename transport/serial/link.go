package serial

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goserial "go.bug.st/serial"
)

// DefaultBaud matches the display firmware
const DefaultBaud = 9600

var (
	ErrNotConnected = errors.New("serial: not connected")
	ErrNoPort       = errors.New("serial: no port given")
)

var (
	writeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2grid",
		Subsystem: "device",
		Name:      "write_failures_total",
		Help:      "CO2 levels that could not be written to the display.",
	})

	writesDone = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "co2grid",
		Subsystem: "device",
		Name:      "writes_total",
		Help:      "CO2 levels written to the display.",
	})
)

// Opener opens a named port at a baud rate
type Opener func(name string, baud int) (io.WriteCloser, error)

// Lister enumerates the available ports
type Lister func() ([]string, error)

// Link forwards CO2 levels to a display attached over a serial port. Each
// level is written as its decimal value followed by a newline.
//
// Push never blocks: the link holds at most one unsent level and a newer
// level replaces it. Write failures are logged and counted, never retried.
type Link struct {
	mu      sync.Mutex
	port    io.WriteCloser
	name    string
	baud    int
	pending int
	queued  bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}

	open   Opener
	list   Lister
	logger *log.Logger
}

// Option configures a Link
type Option func(*Link)

// WithOpener replaces the function used to open ports
func WithOpener(open Opener) Option {
	return func(l *Link) { l.open = open }
}

// WithLister replaces the port enumeration
func WithLister(list Lister) Option {
	return func(l *Link) { l.list = list }
}

// WithLogger replaces the link logger
func WithLogger(logger *log.Logger) Option {
	return func(l *Link) { l.logger = logger }
}

// NewLink creates a disconnected link
func NewLink(opts ...Option) *Link {
	l := &Link{
		open:   openPort,
		list:   goserial.GetPortsList,
		logger: log.WithPrefix("serial"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func openPort(name string, baud int) (io.WriteCloser, error) {
	return goserial.Open(name, &goserial.Mode{BaudRate: baud})
}

// Connect opens the named port and starts the writer. An open connection is
// closed first. A baud of zero or less selects DefaultBaud.
func (l *Link) Connect(name string, baud int) error {
	if name == "" {
		return ErrNoPort
	}
	if baud <= 0 {
		baud = DefaultBaud
	}

	port, err := l.open(name, baud)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	l.attach(port, name, baud)
	l.logger.Info("display connected", "port", name, "baud", baud)
	return nil
}

// Attach starts writing to an already open port
func (l *Link) Attach(port io.WriteCloser, name string) {
	l.attach(port, name, DefaultBaud)
}

func (l *Link) attach(port io.WriteCloser, name string, baud int) {
	l.Disconnect()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.port = port
	l.name = name
	l.baud = baud
	l.queued = false
	l.wake = make(chan struct{}, 1)
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go l.writer(port, l.wake, l.stop, l.done)
}

// Disconnect stops the writer and closes the port. Disconnecting a closed
// link returns ErrNotConnected.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	port, stop, done := l.port, l.stop, l.done
	l.port, l.name, l.baud = nil, "", 0
	l.queued = false
	l.stop, l.done, l.wake = nil, nil, nil
	l.mu.Unlock()

	if port == nil {
		return ErrNotConnected
	}

	close(stop)
	<-done

	if err := port.Close(); err != nil {
		return fmt.Errorf("close port: %w", err)
	}
	l.logger.Info("display disconnected")
	return nil
}

// Connected reports the open port, if any
func (l *Link) Connected() (string, int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name, l.baud, l.port != nil
}

// Ports lists the serial ports present on this machine
func (l *Link) Ports() ([]string, error) {
	ports, err := l.list()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	return ports, nil
}

// Push queues a CO2 level for the display. It is a no-op when no port is
// open.
func (l *Link) Push(co2 int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return
	}
	l.pending = co2
	l.queued = true

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// take returns the queued level and clears the slot
func (l *Link) take() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.queued {
		return 0, false
	}
	l.queued = false
	return l.pending, true
}

func (l *Link) writer(port io.Writer, wake <-chan struct{}, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case <-wake:
			co2, ok := l.take()
			if !ok {
				continue
			}
			if _, err := io.WriteString(port, strconv.Itoa(co2)+"\n"); err != nil {
				writeFailures.Inc()
				l.logger.Warn("failed to write CO2 level", "co2", co2, "error", err)
				continue
			}
			writesDone.Inc()
			l.logger.Debug("CO2 level sent", "co2", co2)
		}
	}
}
