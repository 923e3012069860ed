// Package bus implements the bounded-history publish/subscribe channel used
// for observability. Histories are trimmed FIFO per buffer so progress
// reporting never causes unbounded memory growth, and subscriber faults are
// isolated so one bad handler cannot disrupt delivery.
package bus
