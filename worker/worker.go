package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/tywin1104/mc-dashboard/types"
)

const resubscribeDelay = 2 * time.Second

// Consumer is the source of deliveries, normally the broker service
type Consumer interface {
	Consume() (<-chan amqp.Delivery, error)
}

// Applier folds a single request update into the dashboard state
type Applier interface {
	ApplyUpdate(request types.WhitelistRequest) error
}

// Worker applies request updates pushed by the backend as they arrive
type Worker struct {
	consumer Consumer
	applier  Applier
	logger   *logrus.Entry
}

// NewWorker creates a worker reading from consumer
func NewWorker(consumer Consumer, applier Applier, logger *logrus.Entry) *Worker {
	return &Worker{
		consumer: consumer,
		applier:  applier,
		logger:   logger,
	}
}

// Start consumes until ctx is done, subscribing again whenever the delivery
// channel closes because the connection dropped
func (w *Worker) Start(ctx context.Context) {
	log := w.logger
	log.Info("Worker start. Listening for request updates..")
	for {
		msgs, err := w.consumer.Consume()
		if err != nil {
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Warn("Unable to register a consumer. Retrying")
		} else {
			w.drain(ctx, msgs)
		}
		select {
		case <-ctx.Done():
			log.Info("Worker stopped")
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func (w *Worker) drain(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			w.handle(d)
		}
	}
}

func (w *Worker) handle(d amqp.Delivery) {
	log := w.logger
	request, err := deserialize(d.Body)
	if err != nil {
		log.WithFields(logrus.Fields{
			"messageBody": string(d.Body),
			"err":         err.Error(),
		}).Error("Unable to decode message into whitelistRequest")
		// Unable to process this message, put to the dead-letter queue
		d.Nack(false, false)
		return
	}
	log.WithFields(logrus.Fields{
		"username": request.Username,
		"status":   request.Status.String(),
		"ID":       request.ID.Hex(),
	}).Debug("Received request update")
	if request.Status == types.StatusUnknown {
		log.WithFields(logrus.Fields{
			"ID": request.ID.Hex(),
		}).Warn("Request update carries an unrecognized status")
	}
	if err := w.applier.ApplyUpdate(request); err != nil {
		log.WithFields(logrus.Fields{
			"err": err.Error(),
			"ID":  request.ID.Hex(),
		}).Error("Unable to apply request update")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func deserialize(b []byte) (types.WhitelistRequest, error) {
	var msg types.WhitelistRequest
	decoder := json.NewDecoder(bytes.NewReader(b))
	err := decoder.Decode(&msg)
	return msg, err
}
