// Package rollup turns the tick history into per-vehicle daily metrics and
// schedules that job once per day.
package rollup
