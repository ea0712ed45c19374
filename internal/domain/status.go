package domain

// StatusSignal is the token pushed to the display client after a persistence
// attempt.
type StatusSignal string

const (
	StatusOK    StatusSignal = "INFLUX:OK"
	StatusError StatusSignal = "INFLUX:ERROR"
)

func StatusFor(ok bool) StatusSignal {
	if ok {
		return StatusOK
	}
	return StatusError
}
