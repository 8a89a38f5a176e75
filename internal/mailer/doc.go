// Package mailer hands confirmation emails to the delivery pipeline.
//
// [KafkaSender] publishes one JSON message per email to a topic consumed by
// the mail relay. [LogSender] writes the rendered message to the logger for
// local development. Both render the same templated body with the confirm link.
package mailer
