// Command ccgen drives the Central Controller backend over a small
// hardcoded demonstration program, the same way samples/fir/main.go drives
// the CGRA simulator over a hardcoded FIR program: the backend package
// implements the invoker contract, but walking a real scheduled IR and
// deciding bundle boundaries is the outer compilation driver, which is out
// of scope. This command exists to exercise the contract end to end and
// write out what it produces.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/ccgen/backend"
	"github.com/sarchlab/ccgen/codeword"
	"github.com/sarchlab/ccgen/config"
	"github.com/sarchlab/ccgen/ir"
	"github.com/sarchlab/ccgen/settings"
	"github.com/sarchlab/ccgen/telemetry"
	"github.com/tebeka/atexit"
)

var (
	settingsFile            = flag.String("settings", "", "platform description JSON file")
	mapInputFile            = flag.String("map", "", "preloaded codeword map file")
	outputPrefix            = flag.String("out", "ccgen_out", "output file prefix")
	runOnce                 = flag.Bool("run-once", false, "emit stop instead of looping the main label")
	verbose                 = flag.Bool("verbose", false, "set telemetry.Verbose, enabling the telemetry table-dump helpers")
	staticCodewordsRequired = flag.Bool("static-codewords-required", false, "reject instructions lacking a static codeword override")
)

func main() {
	flag.Parse()

	opts := config.Builder{}.
		WithRunOnce(*runOnce).
		WithVerbose(*verbose).
		WithMapInputFile(*mapInputFile).
		WithOutputPrefix(*outputPrefix).
		WithStaticCodewordsRequired(*staticCodewordsRequired).
		Build()
	telemetry.Verbose = opts.Verbose

	if *settingsFile == "" {
		fmt.Fprintln(os.Stderr, "ccgen: -settings is required")
		atexit.Exit(1)
	}

	sp, err := settings.LoadFile(*settingsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccgen:", err)
		atexit.Exit(1)
	}

	var cw *codeword.Table
	if opts.MapInputFile != "" {
		cw, err = codeword.LoadMapFile(opts.MapInputFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ccgen:", err)
			atexit.Exit(1)
		}
	}

	be := backend.Builder{}.
		WithSettings(sp).
		WithCodewords(cw).
		WithRunOnce(opts.RunOnce).
		WithStaticCodewordsRequired(opts.StaticCodewordsRequired).
		Build("ccgen")

	if err := runDemo(be); err != nil {
		fmt.Fprintln(os.Stderr, "ccgen:", err)
		atexit.Exit(1)
	}

	if err := writeOutputs(be, opts.OutputPrefix); err != nil {
		fmt.Fprintln(os.Stderr, "ccgen:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// runDemo drives a single bundle carrying one unconditional instruction
// followed by a classical assignment and a two-armed if, demonstrating the
// invoker contract's cycle-scheduling and structured-control-flow calls.
func runDemo(be *backend.Backend) error {
	be.ProgramStart(be.Name)

	if err := be.BundleStart("demo bundle at cycle 0"); err != nil {
		return err
	}
	if err := be.CustomInstruction(&ir.CustomInstruction{
		Name:             "x",
		StartCycle:       0,
		DurationInCycles: 2,
		Operands:         []int{0},
	}); err != nil {
		return err
	}
	if err := be.BundleFinish(0, 2, true); err != nil {
		return err
	}

	if err := be.HandleSetInstruction(&ir.SetInstruction{
		Lhs: 0,
		Rhs: ir.IntLiteral{Value: 5},
	}); err != nil {
		return err
	}

	base := be.NewLabelBase("if")
	cond := ir.FunctionCall{
		Name: "operator<",
		Operands: []ir.Expression{
			ir.Reference{Kind: ir.ClassicalRegister, Index: 0},
			ir.IntLiteral{Value: 5},
		},
	}
	if err := be.IfElif(base, 0, cond); err != nil {
		return err
	}
	be.IfOtherwise(base, 1)
	be.IfEnd(base)

	be.ProgramFinish()
	return nil
}

func writeOutputs(be *backend.Backend, prefix string) error {
	asmPath := prefix + ".casm"
	if err := os.WriteFile(asmPath, []byte(be.CodeSection()+be.DatapathSection()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", asmPath, err)
	}
	slog.Info("wrote assembly", "path", asmPath)

	mapPath := prefix + ".map.json"
	f, err := os.Create(mapPath)
	if err != nil {
		return fmt.Errorf("write %s: %w", mapPath, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(be.GetMap("ccgen output")); err != nil {
		return fmt.Errorf("write %s: %w", mapPath, err)
	}
	slog.Info("wrote codeword map", "path", mapPath)
	return nil
}
