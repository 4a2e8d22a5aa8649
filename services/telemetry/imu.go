package telemetry

import (
	"math"
	"sync"

	"tinygo.org/x/drivers"
)

// IMU is a six-axis motion sensor in the tinygo drivers style: Update
// refreshes the cached readings, the getters return them.
type IMU interface {
	drivers.Sensor
	// Acceleration returns the last reading in µg.
	Acceleration() (x, y, z int32)
	// AngularVelocity returns the last reading in µdps.
	AngularVelocity() (x, y, z int32)
}

const motion = drivers.Acceleration | drivers.AngularVelocity

// Sample reads imu once and builds the record with sequence seq.
func Sample(imu IMU, seq int32) (Record, error) {
	if err := imu.Update(motion); err != nil {
		return Record{}, err
	}
	ax, ay, az := imu.Acceleration()
	gx, gy, gz := imu.AngularVelocity()
	return Record{
		AX: milli16(ax),
		AY: milli16(ay),
		AZ: milli16(az),
		GX: RoundGyro(float64(gx) / 1000),
		GY: RoundGyro(float64(gy) / 1000),
		GZ: RoundGyro(float64(gz) / 1000),
		S:  seq,
	}, nil
}

func milli16(micro int32) int16 {
	v := micro / 1000
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// SimIMU produces a slow deterministic motion: gravity on Z with a small
// sway on X/Y, and a rotation that follows the sway.
type SimIMU struct {
	mu    sync.Mutex
	n     int
	acc   [3]int32
	gyro  [3]int32
	Fail  error // returned by Update when set
	Phase float64
}

func (s *SimIMU) Update(which drivers.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.n++
	t := float64(s.n)/10 + s.Phase
	if which&drivers.Acceleration != 0 {
		s.acc = [3]int32{
			int32(50_000 * math.Sin(t)),
			int32(50_000 * math.Cos(t)),
			1_000_000,
		}
	}
	if which&drivers.AngularVelocity != 0 {
		s.gyro = [3]int32{
			int32(5_000 * math.Cos(t)),
			int32(-5_000 * math.Sin(t)),
			1_234,
		}
	}
	return nil
}

func (s *SimIMU) Acceleration() (x, y, z int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc[0], s.acc[1], s.acc[2]
}

func (s *SimIMU) AngularVelocity() (x, y, z int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gyro[0], s.gyro[1], s.gyro[2]
}
