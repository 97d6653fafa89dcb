package modbusctrl

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
)

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const startupDelay = 50 * time.Millisecond

func TestNewValidation(t *testing.T) {
	if _, err := New(heatpump.DefaultTable(), Config{}); err == nil {
		t.Fatal("expected error without UnitID")
	}
	if _, err := New(heatpump.DefaultTable(), Config{UnitID: 1, Model: heatpump.Model(9)}); err == nil {
		t.Fatal("expected error for invalid model")
	}
	c, err := New(heatpump.DefaultTable(), Config{UnitID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if c.cfg.Addr != "127.0.0.1:1502" || c.model != heatpump.ModelAdvPerf {
		t.Fatalf("unexpected defaults %+v", c.cfg)
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	c, err := New(heatpump.DefaultTable(), Config{UnitID: 1, Temperature: 5, Model: heatpump.ModelMidPerf})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		start  int
		values []uint16
	}{
		{"invalid model after temperature", 0, []uint16{encodeScaled(-10, TemperatureScale), 99}},
		{"past the register map", 0, []uint16{encodeScaled(-10, TemperatureScale), 1, 0}},
		{"unknown address", 2, []uint16{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if exc := c.apply(tt.start, tt.values...); exc == &mbserver.Success {
				t.Fatal("expected an exception")
			}
			temp, model := c.inputs()
			if temp != 5 || model != heatpump.ModelMidPerf {
				t.Fatalf("rejected write changed state: temp=%v model=%v", temp, model)
			}
		})
	}
}

func TestScaledEncoding(t *testing.T) {
	cases := []struct {
		v     float64
		scale int
		want  float64
	}{
		{-12.5, TemperatureScale, -12.5},
		{21.25, TemperatureScale, 21.25},
		{3.456, COPScale, 3.46},
		{0.6543, RatioScale, 0.654},
		{1e6, TemperatureScale, 327.67},
	}
	for _, tc := range cases {
		if got := decodeScaled(encodeScaled(tc.v, tc.scale), tc.scale); got != tc.want {
			t.Fatalf("roundtrip(%v, %d) = %v, want %v", tc.v, tc.scale, got, tc.want)
		}
	}
}

func TestModbusControllerHandlers(t *testing.T) {
	table := heatpump.DefaultTable()
	addr := findFreeTCPAddr(t)

	ctrl, err := New(table, Config{
		Addr:        addr,
		UnitID:      1,
		Temperature: 5,
		Model:       heatpump.ModelMidPerf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()

	time.Sleep(startupDelay)

	handler := modbus.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	res, err := client.ReadHoldingRegisters(0, 2)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	get := func(b []byte, i int) uint16 { return binary.BigEndian.Uint16(b[i*2 : i*2+2]) }
	if get(res, 0) != encodeScaled(5, TemperatureScale) {
		t.Fatalf("temperature mismatch")
	}
	if get(res, 1) != uint16(heatpump.ModelMidPerf) {
		t.Fatalf("model mismatch")
	}

	assertPoint := func(temp float64, m heatpump.Model) {
		t.Helper()
		want, err := table.Evaluate(temp, m)
		if err != nil {
			t.Fatal(err)
		}
		ir, err := client.ReadInputRegisters(0, 3)
		if err != nil {
			t.Fatalf("read input: %v", err)
		}
		if get(ir, 0) != encodeScaled(want.COP, COPScale) ||
			get(ir, 1) != encodeScaled(want.CapacityRatio, RatioScale) ||
			get(ir, 2) != encodeScaled(want.AuxFraction, RatioScale) {
			t.Fatalf("point mismatch at %v/%v: %v want %+v", temp, m, ir, want)
		}
	}
	assertPoint(5, heatpump.ModelMidPerf)

	if _, err := client.WriteSingleRegister(0, encodeScaled(-20, TemperatureScale)); err != nil {
		t.Fatalf("write register: %v", err)
	}
	assertPoint(-20, heatpump.ModelMidPerf)

	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b[0:2], encodeScaled(-30.5, TemperatureScale))
	binary.BigEndian.PutUint16(b[2:4], uint16(heatpump.ModelFuture))
	if _, err := client.WriteMultipleRegisters(0, 2, b); err != nil {
		t.Fatalf("write multiple: %v", err)
	}
	assertPoint(-30.5, heatpump.ModelFuture)

	if _, err := client.WriteSingleRegister(1, 7); err == nil {
		t.Fatal("expected exception for invalid model")
	}
	binary.BigEndian.PutUint16(b[0:2], encodeScaled(-10, TemperatureScale))
	binary.BigEndian.PutUint16(b[2:4], 99)
	if _, err := client.WriteMultipleRegisters(0, 2, b); err == nil {
		t.Fatal("expected exception for invalid model in a multi-register write")
	}
	assertPoint(-30.5, heatpump.ModelFuture)
	if _, err := client.ReadInputRegisters(2, 2); err == nil {
		t.Fatal("expected exception past the input register map")
	}
}
