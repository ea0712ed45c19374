package domain

// SensorRecord is one gas-sensor observation as received from the e-nose.
// The two sensor families (GM and MiCS) are reported side by side and are not
// cross-validated.
type SensorRecord struct {
	NO2GM       float64 `json:"no2_gm"`
	EthanolGM   float64 `json:"ethanol_gm"`
	VOCGM       float64 `json:"voc_gm"`
	COGM        float64 `json:"co_gm"`
	COMics      float64 `json:"co_mics"`
	EthanolMics float64 `json:"ethanol_mics"`
	VOCMics     float64 `json:"voc_mics"`
	State       int32   `json:"state"`
	Level       int32   `json:"level"`

	// Timestamp is nanoseconds since the Unix epoch, stamped by the bridge at
	// receipt time.
	Timestamp int64 `json:"timestamp"`
}

// FieldCount is the number of wire fields a record line carries.
const FieldCount = 9
