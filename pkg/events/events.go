// Package events exposes run transitions as a machine-readable stream so a
// supervising process can follow progress without scraping console output.
package events

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const TopicChecks = "waitfor.checks"

type Kind string

const (
	KindCheckStarted Kind = "check_started"
	KindAttempt      Kind = "attempt_failed"
	KindReady        Kind = "target_ready"
	KindFailed       Kind = "run_failed"
	KindAllReady     Kind = "run_succeeded"
)

type Event struct {
	Kind    Kind      `json:"kind"`
	Target  string    `json:"target,omitempty"`
	Index   int       `json:"index,omitempty"`
	Total   int       `json:"total,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Code    int       `json:"code,omitempty"`
	At      time.Time `json:"at"`
}

// BusReporter publishes each transition as a JSON message on the checks
// topic. It satisfies report.Reporter.
type BusReporter struct {
	pub message.Publisher
	now func() time.Time
}

func NewBusReporter(pub message.Publisher) *BusReporter {
	return &BusReporter{pub: pub, now: time.Now}
}

func (r *BusReporter) publish(ev Event) {
	ev.At = r.now()
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = r.pub.Publish(TopicChecks, message.NewMessage(watermill.NewUUID(), payload))
}

func (r *BusReporter) CheckStarted(index, total int, raw string) {
	r.publish(Event{Kind: KindCheckStarted, Target: raw, Index: index, Total: total})
}

func (r *BusReporter) Attempt(raw string, attempt int, reason string) {
	r.publish(Event{Kind: KindAttempt, Target: raw, Attempt: attempt, Reason: reason})
}

func (r *BusReporter) Ready(raw string, attempts int) {
	r.publish(Event{Kind: KindReady, Target: raw, Attempt: attempts})
}

func (r *BusReporter) Failed(raw string, reason string, code int) {
	r.publish(Event{Kind: KindFailed, Target: raw, Reason: reason, Code: code})
}

func (r *BusReporter) AllReady(total int) {
	r.publish(Event{Kind: KindAllReady, Total: total})
}

// NDJSONHandler writes each event payload to out as one JSON line.
func NDJSONHandler(out io.Writer) func(*message.Message) error {
	return func(msg *message.Message) error {
		if _, err := out.Write(append(msg.Payload, '\n')); err != nil {
			return err
		}
		return nil
	}
}
