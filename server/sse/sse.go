package sse

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

const clientBuffer = 8

// Broker fans out events to every connected Server-Sent Events client
type Broker struct {

	// Events are pushed to this channel by the main events-gathering routine
	Notifier chan []byte

	// New client connections
	newClients chan chan []byte

	// Closed client connections
	closingClients chan chan []byte

	// Closed when Listen returns
	done chan struct{}

	// Client connections registry
	clients map[chan []byte]bool
	// Last broadcast event, replayed to clients as soon as they connect.
	// Only touched by Listen.
	last   []byte
	logger *logrus.Entry
}

// NewServer instantiate a broker as SSE server
func NewServer(logger *logrus.Entry) *Broker {
	return &Broker{
		Notifier:       make(chan []byte, 1),
		newClients:     make(chan chan []byte),
		closingClients: make(chan chan []byte),
		done:           make(chan struct{}),
		clients:        make(map[chan []byte]bool),
		logger:         logger,
	}
}

func (broker *Broker) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	// Make sure that the writer supports flushing
	flusher, ok := rw.(http.Flusher)
	if !ok {
		http.Error(rw, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")

	// Each connection registers its own message channel with the Broker's connections registry
	messageChan := make(chan []byte, clientBuffer)
	select {
	case broker.newClients <- messageChan:
	case <-broker.done:
		http.Error(rw, "Event stream closed", http.StatusServiceUnavailable)
		return
	case <-req.Context().Done():
		return
	}
	defer func() {
		select {
		case broker.closingClients <- messageChan:
		case <-broker.done:
		}
	}()

	rw.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-broker.done:
			return
		case event := <-messageChan:
			// Server Sent Events compatible
			fmt.Fprintf(rw, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// Listen starts to listen for clients connection related event and fans out
// notifications until ctx is done
func (broker *Broker) Listen(ctx context.Context) {
	log := broker.logger
	defer close(broker.done)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-broker.newClients:
			// A new client has connected.
			// Register their message channel
			broker.clients[s] = true
			log.Debugf("SSE client added. %d registered clients", len(broker.clients))
			if broker.last != nil {
				// the client channel is new and buffered
				s <- broker.last
			}
		case s := <-broker.closingClients:
			// A client has dettached and we want to
			// stop sending them messages.
			delete(broker.clients, s)
			log.Debugf("Removed SSE client. %d registered clients", len(broker.clients))
		case event := <-broker.Notifier:
			broker.last = event
			// Send event to all connected clients, skipping the ones that
			// are too far behind
			for clientMessageChan := range broker.clients {
				select {
				case clientMessageChan <- event:
				default:
					log.Warn("SSE client is not keeping up. Dropping event")
				}
			}
		}
	}
}

// Publish queues an event for every connected client. It reports false once
// the broker has stopped listening.
func (broker *Broker) Publish(event []byte) bool {
	select {
	case <-broker.done:
		return false
	default:
	}
	select {
	case broker.Notifier <- event:
		return true
	case <-broker.done:
		return false
	}
}
