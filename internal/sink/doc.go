// Package sink carries recorded conversion events to the downstream
// integrations: lead e-mail, spreadsheet logging and archival.
//
// The API process publishes each recorded event to an SQS queue (or, without
// a queue, hands it to an in-process dispatcher). The worker process drains
// the queue and runs every notifier on each event.
package sink
