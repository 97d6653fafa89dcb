package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/ports"
)

// Register map.
//
//	HR0  outdoor temperature, degrees Celsius x100 (int16), read/write
//	HR1  heat pump model enum (1 midperfhp, 2 advperfhp, 3 futurehp), read/write
//	IR0  blended COP x100
//	IR1  capacity ratio x1000
//	IR2  auxiliary fraction x1000
const (
	holdingRegisters = 2
	inputRegisters   = 3
)

// Config for the Modbus controller.
type Config struct {
	Addr   string
	UnitID byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.

	// Initial lookup inputs, overwritten by register writes.
	Temperature float64
	Model       heatpump.Model
}

// Controller serves COP lookups over Modbus TCP: a client writes the outdoor
// temperature and model to holding registers and reads the operating point
// back from input registers.
type Controller struct {
	svc ports.COPService
	cfg Config

	mu    sync.Mutex
	temp  float64
	model heatpump.Model

	serv *mbserver.Server
}

func New(svc ports.COPService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	if cfg.Model == heatpump.ModelUnknown {
		cfg.Model = heatpump.ModelAdvPerf
	}
	if !cfg.Model.Valid() {
		return nil, fmt.Errorf("modbus: %w: %d", heatpump.ErrInvalidModel, cfg.Model)
	}
	return &Controller{svc: svc, cfg: cfg, temp: cfg.Temperature, model: cfg.Model}, nil
}

// Run starts the Modbus server and blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Handlers go in before ListenTCP to avoid racing mbserver's goroutines.
	serv.RegisterFunctionHandler(3, c.readHolding)
	serv.RegisterFunctionHandler(4, c.readInput)
	serv.RegisterFunctionHandler(6, c.writeSingle)
	serv.RegisterFunctionHandler(16, c.writeMultiple)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func (c *Controller) inputs() (float64, heatpump.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temp, c.model
}

func (c *Controller) readHolding(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), holdingRegisters)
	if exc != &mbserver.Success {
		return []byte{}, exc
	}
	temp, model := c.inputs()
	regs := make([]uint16, 0, qty)
	for addr := start; addr < start+qty; addr++ {
		switch addr {
		case 0:
			regs = append(regs, encodeScaled(temp, TemperatureScale))
		case 1:
			regs = append(regs, uint16(model))
		}
	}
	return registerResponse(regs), &mbserver.Success
}

func (c *Controller) readInput(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), inputRegisters)
	if exc != &mbserver.Success {
		return []byte{}, exc
	}
	temp, model := c.inputs()
	pt, err := c.svc.Evaluate(temp, model)
	if err != nil {
		return []byte{}, &mbserver.SlaveDeviceFailure
	}
	regs := make([]uint16, 0, qty)
	for addr := start; addr < start+qty; addr++ {
		switch addr {
		case 0:
			regs = append(regs, encodeScaled(pt.COP, COPScale))
		case 1:
			regs = append(regs, encodeScaled(pt.CapacityRatio, RatioScale))
		case 2:
			regs = append(regs, encodeScaled(pt.AuxFraction, RatioScale))
		}
	}
	return registerResponse(regs), &mbserver.Success
}

// Write Single Register (function 6)
func (c *Controller) writeSingle(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])
	if exc := c.apply(int(addr), value); exc != &mbserver.Success {
		return []byte{}, exc
	}
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Multiple Registers (function 16)
func (c *Controller) writeMultiple(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if quantity == 0 || byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}
	vals := make([]uint16, quantity)
	for i := range vals {
		vals[i] = binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
	}
	if exc := c.apply(int(start), vals...); exc != &mbserver.Success {
		return []byte{}, exc
	}
	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

// apply writes values to consecutive holding registers from start. Every
// value is checked before any register changes.
func (c *Controller) apply(start int, values ...uint16) *mbserver.Exception {
	for i, v := range values {
		switch start + i {
		case 0:
		case 1:
			if !heatpump.Model(v).Valid() {
				return &mbserver.IllegalDataValue
			}
		default:
			return &mbserver.IllegalDataAddress
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range values {
		switch start + i {
		case 0:
			c.temp = decodeScaled(v, TemperatureScale)
		case 1:
			c.model = heatpump.Model(v)
		}
	}
	return &mbserver.Success
}

func readRange(data []byte, size int) (start, qty int, exc *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start = int(binary.BigEndian.Uint16(data[0:2]))
	qty = int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > size {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, &mbserver.Success
}

// registerResponse builds byte count + register bytes.
func registerResponse(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

const (
	TemperatureScale = 100
	COPScale         = 100
	RatioScale       = 1000
)

func encodeScaled(v float64, scale int) uint16 {
	r := min(max(int(math.Round(v*float64(scale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeScaled(u uint16, scale int) float64 {
	return float64(int16(u)) / float64(scale)
}
