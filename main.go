package main

import (
	"fmt"
	"os"

	"github.com/binaryfields/zinc64/emu"
	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw"
	"github.com/binaryfields/zinc64/loader"
)

const version = "0.1.0"

func main() {
	cli, ctx := parseArgs(os.Args[1:])

	if cli.Log.mask != 0 {
		log.EnableDebugModules(cli.Log.mask)
	}

	switch {
	case ctx.Command() == "version":
		fmt.Println("zinc64", version)
	case ctx.Command() == "infos </path/to/image>":
		os.Exit(imageInfos(cli.Infos))
	default:
		os.Exit(runImage(cli.Run))
	}
}

func imageInfos(args Infos) int {
	img, err := loader.Open(args.ImagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading image: %v\n", err)
		return emu.ExitLoadError
	}
	switch img := img.(type) {
	case *loader.PRG:
		fmt.Printf("prg: load=$%04X size=%d\n", img.LoadAddr, len(img.Data))
	case *loader.CRTImage:
		fmt.Printf("crt: banks=%d exrom=%v game=%v\n",
			len(img.Cart.Banks), img.Cart.Exrom, img.Cart.Game)
	case *loader.TAPImage:
		fmt.Printf("tap: version=%d pulses=%d\n", img.Version, len(img.Pulses))
	}
	return emu.ExitOK
}

func runImage(args Run) int {
	cfg := emu.LoadConfigOrDefault(args.ConfigDir)

	machine, err := emu.NewMachine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building machine: %v\n", err)
		return emu.ExitConfigError
	}

	img, err := loader.Open(args.ImagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading image: %v\n", err)
		return emu.ExitLoadError
	}

	if prg, ok := img.(*loader.PRG); ok && args.Autostart {
		machine.SetAutostart(prg)
	} else if err := img.Mount(machine.C64); err != nil {
		fmt.Fprintf(os.Stderr, "error mounting image: %v\n", err)
		return emu.ExitLoadError
	}

	nframes := 0
	return machine.Run(func(f *hw.Frame) {
		nframes++
		if args.Frames > 0 && nframes >= args.Frames {
			machine.Stop()
		}
	})
}
