package telemetry

import (
	"math"
	"strconv"
)

// Record is one motion sample. Acceleration is in mg, angular velocity in
// mdps with two decimals, S is the sample sequence number.
type Record struct {
	AX int16 `json:"a_x" cbor:"a_x"`
	AY int16 `json:"a_y" cbor:"a_y"`
	AZ int16 `json:"a_z" cbor:"a_z"`
	GX Gyro  `json:"g_x" cbor:"g_x"`
	GY Gyro  `json:"g_y" cbor:"g_y"`
	GZ Gyro  `json:"g_z" cbor:"g_z"`
	S  int32 `json:"s" cbor:"s"`
}

// Gyro is an angular rate that always encodes with two decimals.
type Gyro float64

// RoundGyro rounds v to two decimals.
func RoundGyro(v float64) Gyro { return Gyro(math.Round(v*100) / 100) }

func (g Gyro) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(g), 'f', 2, 64), nil
}

func (g *Gyro) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*g = Gyro(v)
	return nil
}
