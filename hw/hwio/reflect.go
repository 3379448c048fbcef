package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// InitRegs initializes the hwio fields of a register bank struct from their
// "hwio" struct tags and binds the declared callbacks to methods of the
// bank. Tag options:
//
//	offset=0xNN   offset of the register within the bank
//	bank=N        ordinal bank number (default 0)
//	reset=0xNN    initial value (Reg8)
//	rwmask=0xNN   bits that writes can modify (Reg8; default all)
//	rcb,wcb,pcb   bind Read<NAME>/Write<NAME>/Peek<NAME> methods
//	readonly      reject writes
//	writeonly     reject reads
//	size=0xNN     physical buffer size (Mem; allocated if Data is nil)
//	vsize=0xNN    virtual (mirrored) size (Mem; default size)
func InitRegs(bank any) error {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	sv := v.Elem()
	st := sv.Type()

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("hwio: field %s.%s: %w", st.Name(), field.Name, err)
		}

		switch fp := sv.Field(i).Addr().Interface().(type) {
		case *Reg8:
			if err := initReg8(v, field.Name, fp, opts); err != nil {
				return fmt.Errorf("hwio: field %s.%s: %w", st.Name(), field.Name, err)
			}
		case *Mem:
			if err := initMem(v, field.Name, fp, opts); err != nil {
				return fmt.Errorf("hwio: field %s.%s: %w", st.Name(), field.Name, err)
			}
		default:
			return fmt.Errorf("hwio: field %s.%s: unsupported type %T", st.Name(), field.Name, fp)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error. Register banks are
// wired at machine construction, where a bad tag is a programming error.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}

type tagOpts struct {
	offset    uint16
	hasOffset bool
	bank      int
	reset     uint8
	rwmask    uint8
	hasRwmask bool
	size      int
	vsize     int
	rcb       bool
	wcb       bool
	pcb       bool
	readonly  bool
	writeonly bool
}

func parseTag(tag string) (tagOpts, error) {
	opts := tagOpts{}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, hasVal := strings.Cut(part, "=")
		switch key {
		case "offset", "bank", "reset", "rwmask", "size", "vsize":
			if !hasVal {
				return opts, fmt.Errorf("option %q requires a value", key)
			}
			n, err := strconv.ParseUint(val, 0, 32)
			if err != nil {
				return opts, fmt.Errorf("option %q: %v", key, err)
			}
			switch key {
			case "offset":
				opts.offset = uint16(n)
				opts.hasOffset = true
			case "bank":
				opts.bank = int(n)
			case "reset":
				opts.reset = uint8(n)
			case "rwmask":
				opts.rwmask = uint8(n)
				opts.hasRwmask = true
			case "size":
				opts.size = int(n)
			case "vsize":
				opts.vsize = int(n)
			}
		case "rcb":
			opts.rcb = true
		case "wcb":
			opts.wcb = true
		case "pcb":
			opts.pcb = true
		case "readonly":
			opts.readonly = true
		case "writeonly":
			opts.writeonly = true
		default:
			return opts, fmt.Errorf("unknown option %q", key)
		}
	}
	return opts, nil
}

func initReg8(bank reflect.Value, name string, reg *Reg8, opts tagOpts) error {
	reg.Name = name
	reg.Value = opts.reset
	if opts.hasRwmask {
		reg.RoMask = ^opts.rwmask
	}
	reg.Flags = 0
	if opts.readonly {
		reg.Flags |= ReadOnlyFlag
	}
	if opts.writeonly {
		reg.Flags |= WriteOnlyFlag
	}

	uname := strings.ToUpper(name)
	if opts.rcb {
		m := bank.MethodByName("Read" + uname)
		if !m.IsValid() {
			return fmt.Errorf("missing method Read%s", uname)
		}
		cb, ok := m.Interface().(func(uint8) uint8)
		if !ok {
			return fmt.Errorf("Read%s must be func(uint8) uint8", uname)
		}
		reg.ReadCb = cb
	}
	if opts.wcb {
		m := bank.MethodByName("Write" + uname)
		if !m.IsValid() {
			return fmt.Errorf("missing method Write%s", uname)
		}
		cb, ok := m.Interface().(func(uint8, uint8))
		if !ok {
			return fmt.Errorf("Write%s must be func(old, val uint8)", uname)
		}
		reg.WriteCb = cb
	}
	if opts.pcb {
		m := bank.MethodByName("Peek" + uname)
		if !m.IsValid() {
			return fmt.Errorf("missing method Peek%s", uname)
		}
		cb, ok := m.Interface().(func(uint8) uint8)
		if !ok {
			return fmt.Errorf("Peek%s must be func(uint8) uint8", uname)
		}
		reg.PeekCb = cb
	}
	return nil
}

func initMem(bank reflect.Value, name string, mem *Mem, opts tagOpts) error {
	mem.Name = name
	if mem.Data == nil && opts.size > 0 {
		mem.Data = make([]byte, opts.size)
	}
	mem.VSize = opts.vsize
	if mem.VSize == 0 {
		mem.VSize = len(mem.Data)
	}
	if opts.readonly {
		mem.Flags |= MemFlag8ReadOnly
	}
	if opts.wcb {
		uname := strings.ToUpper(name)
		m := bank.MethodByName("Write" + uname)
		if !m.IsValid() {
			return fmt.Errorf("missing method Write%s", uname)
		}
		cb, ok := m.Interface().(func(uint16, uint8))
		if !ok {
			return fmt.Errorf("Write%s must be func(addr uint16, val uint8)", uname)
		}
		mem.WriteCb = cb
	}
	return nil
}

// bankGetRegs returns the mappable registers of a bank belonging to the
// given ordinal bank number, with their offsets.
func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	sv := v.Elem()
	st := sv.Type()

	var regs []bankReg
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s.%s: %w", st.Name(), field.Name, err)
		}
		if !opts.hasOffset || opts.bank != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: opts.offset,
			regPtr: sv.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}

type bankReg struct {
	offset uint16
	regPtr any
}
