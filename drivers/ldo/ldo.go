// Package ldo drives an I2C-programmable LDO regulator: a voltage select
// register, a current-limit register and an enable bit. Boards that hang
// the sensor rail off a PMIC LDO use this as the rail backend instead of a
// kernel-managed regulator.
package ldo

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

// Register map.
const (
	regCtrl = 0x00
	regVSel = 0x01
	regILim = 0x02

	ctrlEnable = 0x01
)

// VSEL encoding: output = vselBase + code*vselStep.
const (
	vselBaseUV = 1_500_000
	vselStepUV = 50_000
	vselMax    = 0x3F
)

// ILIM encoding: limit = (code+1)*ilimStep.
const (
	ilimStepUA = 25_000
	ilimMax    = 0x0F
)

var errWindow = errors.New("ldo: no selectable voltage inside window")

type Device struct {
	bus  drivers.I2C
	addr uint16
}

func New(bus drivers.I2C, addr uint16) *Device {
	return &Device{bus: bus, addr: addr}
}

func (d *Device) readReg(reg byte) (byte, error) {
	var buf [1]byte
	if err := d.bus.Tx(d.addr, []byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Device) writeReg(reg, val byte) error {
	return d.bus.Tx(d.addr, []byte{reg, val}, nil)
}

// VSelCode returns the lowest selectable code whose voltage lies inside
// [minUV, maxUV], or an error when the window misses the selectable range.
func VSelCode(minUV, maxUV int) (byte, error) {
	if maxUV < minUV {
		minUV, maxUV = maxUV, minUV
	}
	code := (minUV - vselBaseUV + vselStepUV - 1) / vselStepUV
	if code < 0 {
		code = 0
	}
	if code > vselMax {
		return 0, errWindow
	}
	if v := vselBaseUV + code*vselStepUV; v > maxUV {
		return 0, errWindow
	}
	return byte(code), nil
}

// VSelUV decodes a VSEL code back to microvolts.
func VSelUV(code byte) int { return vselBaseUV + int(code)*vselStepUV }

// ILimCode returns the smallest code whose limit covers uA.
func ILimCode(uA int) (byte, error) {
	if uA <= 0 {
		return 0, fmt.Errorf("ldo: invalid load %d uA", uA)
	}
	code := (uA + ilimStepUA - 1) / ilimStepUA
	if code < 1 {
		code = 1
	}
	if code-1 > ilimMax {
		return 0, fmt.Errorf("ldo: load %d uA exceeds limit range", uA)
	}
	return byte(code - 1), nil
}

// ---- rail handle surface ----

func (d *Device) SetVoltage(minUV, maxUV int) error {
	code, err := VSelCode(minUV, maxUV)
	if err != nil {
		return err
	}
	return d.writeReg(regVSel, code)
}

func (d *Device) SetLoad(uA int) error {
	code, err := ILimCode(uA)
	if err != nil {
		return err
	}
	return d.writeReg(regILim, code)
}

func (d *Device) Enable() error {
	ctrl, err := d.readReg(regCtrl)
	if err != nil {
		return err
	}
	return d.writeReg(regCtrl, ctrl|ctrlEnable)
}

func (d *Device) Disable() error {
	ctrl, err := d.readReg(regCtrl)
	if err != nil {
		return err
	}
	return d.writeReg(regCtrl, ctrl&^ctrlEnable)
}

func (d *Device) Enabled() bool {
	ctrl, err := d.readReg(regCtrl)
	return err == nil && ctrl&ctrlEnable != 0
}

// Release drops the handle. The chip keeps its programmed state; the
// output is only cut by an explicit Disable.
func (d *Device) Release() error { return nil }
