package hw

import (
	"os"
	"path/filepath"
	"testing"
)

// The 6502 functional test suite: a raw binary loaded over the whole
// address space, entered at $0400, trapping at the documented success PC.
// Drop the image into testdata to enable it.
const functionalTestBin = "6502_functional_test.bin"
const functionalTestSuccess = 0x3469

func TestCPUFunctional(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping functional test ROM")
	}
	path := filepath.Join("testdata", functionalTestBin)
	image, err := os.ReadFile(path)
	if err != nil {
		t.Skipf("functional test image not present: %v", err)
	}

	bus := &testBus{}
	copy(bus.ram[:], image)
	cpu := NewCPU(bus, &tickCounter{}, NewPins())
	cpu.PC = 0x0400

	const maxCycles = 80_000_000
	var lastPC uint16
	for cpu.Clock < maxCycles {
		lastPC = cpu.PC
		cpu.Step()
		if cpu.PC == lastPC {
			// Trapped: either success or a failed test case.
			break
		}
	}
	if cpu.PC != functionalTestSuccess {
		t.Errorf("trapped at PC=$%04X after %d cycles, want $%04X",
			cpu.PC, cpu.Clock, functionalTestSuccess)
	}
}
