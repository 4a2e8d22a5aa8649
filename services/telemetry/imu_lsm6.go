package telemetry

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lsm6ds3tr"

	"irqdemo-go/errcode"
)

// LSM6 adapts an LSM6DS3TR-C on an I2C bus to IMU.
type LSM6 struct {
	dev  *lsm6ds3tr.Device
	acc  [3]int32
	gyro [3]int32
}

func NewLSM6(bus drivers.I2C) (*LSM6, error) {
	if bus == nil {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "telemetry.NewLSM6", Msg: "no i2c bus"}
	}
	dev := lsm6ds3tr.New(bus)
	if err := dev.Configure(lsm6ds3tr.Configuration{}); err != nil {
		return nil, errcode.Wrap(errcode.Error, "telemetry.NewLSM6", err)
	}
	if !dev.Connected() {
		return nil, &errcode.E{C: errcode.NotConnected, Op: "telemetry.NewLSM6", Msg: "lsm6ds3tr not found"}
	}
	return &LSM6{dev: dev}, nil
}

func (l *LSM6) Update(which drivers.Measurement) error {
	if which&drivers.Acceleration != 0 {
		x, y, z, err := l.dev.ReadAcceleration()
		if err != nil {
			return err
		}
		l.acc = [3]int32{x, y, z}
	}
	if which&drivers.AngularVelocity != 0 {
		x, y, z, err := l.dev.ReadRotation()
		if err != nil {
			return err
		}
		l.gyro = [3]int32{x, y, z}
	}
	return nil
}

func (l *LSM6) Acceleration() (x, y, z int32) { return l.acc[0], l.acc[1], l.acc[2] }

func (l *LSM6) AngularVelocity() (x, y, z int32) { return l.gyro[0], l.gyro[1], l.gyro[2] }
