package storage

import "launchcurve/internal/model"

// EventSink defines a sink for emitted event records.
type EventSink interface {
	PutEventBatch(events []model.EventRecord) error
}
