// Package snapshot holds the plain-data machine state used for save/restore.
// Serialization is the frontend's concern; the core only guarantees that
// Save followed by Restore resumes cycle-exact execution.
package snapshot

type C64 struct {
	Version int

	CPU  *CPU
	CIA1 *CIA
	CIA2 *CIA
	VIC  *VIC
	SID  *SID

	RAM      [0x10000]uint8
	ColorRAM [0x400]uint8

	MemMode uint8
	Cycles  uint64
	Frames  uint32
}

type CPU struct {
	PC uint16
	SP uint8
	P  uint8
	A  uint8
	X  uint8
	Y  uint8

	Clock int64

	PortDir  uint8
	PortData uint8

	RunIRQ      bool
	PrevRunIRQ  bool
	NMILast     bool
	NeedNMI     bool
	PrevNeedNMI bool
	Halted      bool
}

type CIA struct {
	PortAData uint8
	PortADir  uint8
	PortBData uint8
	PortBDir  uint8

	TimerA CIATimer
	TimerB CIATimer

	IntMask   uint8
	IntData   uint8
	IntAssert int8

	SDR uint8

	TODHalted bool
	TODClock  CIATod
	TODAlarm  CIATod
}

type CIATimer struct {
	Latch      uint16
	Counter    uint16
	Running    bool
	OneShot    bool
	Input      uint8
	CR         uint8
	PBToggle   bool
	StartDelay int8
	LoadDelay  int8
}

type CIATod struct {
	Tenths  uint8
	Seconds uint8
	Minutes uint8
	Hours   uint8
	PM      bool
}

type VIC struct {
	Cycle     uint16
	Raster    uint16
	RasterCmp uint16

	Den     bool
	Rsel    bool
	Csel    bool
	Bmm     bool
	Ecm     bool
	Mcm     bool
	YScroll uint8
	XScroll uint8

	VideoMatrix uint16
	CharBase    uint16

	IRQStatus uint8
	IRQEnable uint8

	BorderColor uint8
	BgColor     [4]uint8
	SpriteMM    [2]uint8

	DisplayOn bool
	Display   bool
	VC        uint16
	VCBase    uint16
	RC        uint8
	VMLI      uint8
	CBuf      [40]uint16

	MainBorder bool
	VertBorder bool

	MBCollision uint8
	MMCollision uint8

	Sprites [8]Sprite
}

type Sprite struct {
	X          uint16
	Y          uint8
	Enabled    bool
	ExpandX    bool
	ExpandY    bool
	Multicolor bool
	BehindGfx  bool
	Color      uint8

	DMA     bool
	Pointer uint8
	MC      uint8
	MCBase  uint8
	ExpFlop bool
	Display bool
	Data    uint32
}

type SID struct {
	Voices [3]SIDVoice

	Volume     uint8
	FilterFC   uint16
	FilterRes  uint8
	FilterRout uint8
	FilterMode uint8
	FilterLP   float64
	FilterBP   float64
	FilterHP   float64
}

type SIDVoice struct {
	Freq    uint16
	PW      uint16
	Control uint8
	Acc     uint32
	Noise   uint32

	EnvState   uint8
	EnvCounter uint8
	EnvRate    uint16
	EnvExp     uint8
	EnvAttack  uint8
	EnvDecay   uint8
	EnvSustain uint8
	EnvRelease uint8
	EnvGate    bool
	EnvFrozen  bool
}
