// Command thermalnet drives one of the built-in grid or prism demonstration
// scenarios through the steady-state or transient solver and prints the
// results, the way the teacher's cmd/main.go drives a parsed netlist through
// an analysis.Analysis and prints its result map. thermalnet has no netlist
// importer of its own: layout/CAD ingestion is an external collaborator
// (spec.md §1's non-goals), so the scenarios here are built directly in Go,
// the same way cmd/examples/bjt builds its circuit by hand instead of
// parsing a .cir file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/ecad-oss/thermalnet/pkg/bc"
	"github.com/ecad-oss/thermalnet/pkg/config"
	"github.com/ecad-oss/thermalnet/pkg/excitation"
	"github.com/ecad-oss/thermalnet/pkg/extract/grid"
	"github.com/ecad-oss/thermalnet/pkg/extract/prism"
	"github.com/ecad-oss/thermalnet/pkg/material"
	"github.com/ecad-oss/thermalnet/pkg/mna"
	"github.com/ecad-oss/thermalnet/pkg/network"
	"github.com/ecad-oss/thermalnet/pkg/solver"
	"github.com/ecad-oss/thermalnet/pkg/transient"
	"github.com/ecad-oss/thermalnet/pkg/triangulation"
	"github.com/ecad-oss/thermalnet/pkg/util"
	"github.com/ecad-oss/thermalnet/pkg/vtk"
)

func main() {
	model := flag.String("model", "grid", "scenario: grid or prism")
	mode := flag.String("mode", "steady", "analysis: steady or transient")
	threads := flag.Int("threads", 0, "worker threads (0 = hardware concurrency)")
	iteration := flag.Int("iteration", 0, "temperature-dependent outer loop count")
	residual := flag.Float64("residual", 1e-6, "outer loop convergence bound")
	refT := flag.Float64("reft", 298.15, "reference ambient, K")
	duration := flag.Float64("duration", 1.0, "transient duration, s")
	dtInit := flag.Float64("dt0", 1e-3, "transient initial step, s")
	vtkOut := flag.String("vtk-out", "", "prism model: write a VTK wedge-mesh dump to this path")
	flag.Parse()

	cfg := config.Default()
	cfg.Iteration = *iteration
	cfg.Residual = *residual
	cfg.RefT = *refT
	if *threads > 0 {
		cfg.Threads = *threads
	}
	cfg.Normalize()

	var net *network.ThermalNetwork
	var prismModel *prism.Model

	switch *model {
	case "grid":
		net = buildGridScenario(cfg)
	case "prism":
		var m prism.Model
		net, m = buildPrismScenario(cfg)
		prismModel = &m
	default:
		log.Fatalf("unknown -model %q (want grid or prism)", *model)
	}

	fmt.Printf("Scenario: %s model, %d nodes\n", *model, net.Size())

	switch *mode {
	case "steady":
		runSteady(net, cfg, prismModel, *vtkOut)
	case "transient":
		runTransient(net, cfg, *duration, *dtInit)
	default:
		log.Fatalf("unknown -mode %q (want steady or transient)", *mode)
	}
}

func runSteady(net *network.ThermalNetwork, cfg *config.Config, prismModel *prism.Model, vtkOut string) {
	fmt.Println("\nRunning steady-state solve...")
	sv := solver.NewSteadyState(solver.CG)
	res, err := sv.Solve(net, cfg, nil)
	if err != nil && err != solver.ErrNonConvergence {
		log.Fatalf("steady-state solve failed: %v", err)
	}

	minT, maxT := res.X[0], res.X[0]
	for _, t := range res.X {
		if t < minT {
			minT = t
		}
		if t > maxT {
			maxT = t
		}
	}

	fmt.Println("\nSteady-State Results:")
	fmt.Println("======================")
	fmt.Printf("Outer iterations: %d (converged: %v)\n", res.OuterIters, res.Converged)
	fmt.Printf("Inner solve iterations: %d, residual: %.3e\n", res.LinSolveIters, res.LinSolveResid)
	fmt.Printf("Node temperatures: min=%s, max=%s\n", util.FormatValueFactor(minT, "K"), util.FormatValueFactor(maxT, "K"))
	printNodeTemps(res.X)

	if vtkOut == "" {
		return
	}
	if prismModel == nil {
		log.Printf("vtk dump requested but -model is not prism, skipping")
		return
	}
	mesh, err := vtk.BuildFromPrism(*prismModel, res.X)
	if err != nil {
		log.Fatalf("vtk mesh assembly failed: %v", err)
	}
	f, err := os.Create(vtkOut)
	if err != nil {
		log.Fatalf("vtk dump: %v", err)
	}
	defer f.Close()
	if err := vtk.WriteLegacyASCII(f, mesh); err != nil {
		log.Fatalf("vtk dump: %v", err)
	}
	fmt.Printf("\nWrote VTK wedge mesh to %s\n", vtkOut)
}

func runTransient(net *network.ThermalNetwork, cfg *config.Config, duration, dt0 float64) {
	fmt.Println("\nRunning transient solve...")
	m, err := mna.NewBuilder(net).Assemble(nil)
	if err != nil {
		log.Fatalf("assembly failed: %v", err)
	}

	excites := make([]excitation.Excitation, m.S)
	if m.S > 0 {
		excites[0] = excitation.Pulse{V1: 0, V2: 1, Rise: duration / 20, Width: duration / 2, Fall: duration / 20, Period: duration}
	}

	full := transient.NewFullOrderModel(m, net, cfg.RefT, excites, cfg.Threads)
	x := make([]float64, net.Size())
	for i := range x {
		x[i] = cfg.RefT
	}

	probes := make([]int, net.Size())
	for i := range probes {
		probes[i] = i
	}

	fmt.Print("TIME")
	for _, p := range probes {
		fmt.Printf(",T(%d)", p)
	}
	fmt.Println()

	rec := &transient.Recorder{
		Interval: duration / 20,
		Probes:   probes,
		Sink: func(t float64, values []float64) {
			fmt.Printf("%.6g", t)
			for _, v := range values {
				fmt.Printf(",%.6g", v)
			}
			fmt.Println()
		},
	}

	res, err := transient.Integrate(full, x, 0, duration, dt0, cfg.AbsTol, cfg.RelTol, rec)
	if err != nil {
		log.Fatalf("transient integration failed: %v", err)
	}
	fmt.Printf("\nTransient completed: %d accepted steps, final t=%.6g, canceled=%v\n", res.AcceptedSteps, res.FinalT, res.Canceled)
}

func printNodeTemps(x []float64) {
	fmt.Println("\nPer-node temperatures:")
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.Ints(idx)
	for _, i := range idx {
		fmt.Printf("  node[%d] = %s\n", i, util.FormatValueFactor(x[i], "K"))
	}
}

// buildGridScenario constructs a small copper voxel column: a 2x2x4 block
// with a uniform bottom power injection and a high top HTC approximating a
// fixed-temperature heatsink, demonstrating extract/grid end to end.
func buildGridScenario(cfg *config.Config) *network.ThermalNetwork {
	db := material.NewDB()
	db.Add(material.Material{
		ID: 1, Name: "Cu",
		K: material.NewScalar(400), Rho: material.NewScalar(8960), C: material.NewScalar(385),
	})
	copperMat, _ := db.Get(1)

	const nz = 4
	dims := grid.Dims{Nx: 2, Ny: 2, Nz: nz}
	layers := make([]grid.Layer, nz)
	for z := range layers {
		frac := [][]float64{{1, 1}, {1, 1}}
		layers[z] = grid.Layer{Thickness: 0.0005, MetalFraction: frac, ConductingMaterial: copperMat, DielectricMaterial: copperMat}
	}

	bottomHF := bc.Uniform(bc.HeatFlow, 0.5)
	topHTC := bc.Uniform(bc.HTC, 5000)

	m := grid.Model{
		Dims:   dims,
		Rx:     0.001,
		Ry:     0.001,
		Layers: layers,
		TopBC:  &topHTC,
		BotBC:  &bottomHF,
	}

	ext := grid.New(m, cfg.RefT)
	net, sum, err := ext.Build(nil)
	if err != nil {
		log.Fatalf("grid extraction failed: %v", err)
	}
	fmt.Printf("Grid extraction: %d boundary nodes, %d fixed-T nodes, in=%.4gW out=%.4gW\n",
		sum.BoundaryNodes, sum.FixedTNodes, sum.IHeatFlow, sum.OHeatFlow)
	return net
}

// buildPrismScenario triangulates a 2 mm x 2 mm square into two stacked layers
// (SingleTemplate linkage) with a bottom power block and top HTC,
// demonstrating extract/prism and the VTK wedge-mesh dump end to end.
func buildPrismScenario(cfg *config.Config) (*network.ThermalNetwork, prism.Model) {
	pts := []triangulation.Point{{0, 0}, {0.002, 0}, {0.002, 0.002}, {0, 0.002}}
	mesh, err := triangulation.Triangulate(pts, nil, triangulation.Params{})
	if err != nil {
		log.Fatalf("triangulation failed: %v", err)
	}

	db := material.NewDB()
	db.Add(material.Material{
		ID: 1, Name: "Si",
		K: material.NewScalar(150), Rho: material.NewScalar(2330), C: material.NewScalar(700),
	})

	elems := make([]prism.PrismaElement, len(mesh.Triangles))
	for i := range elems {
		elems[i] = prism.PrismaElement{TemplateID: i, MatID: 1}
	}
	botElems := make([]prism.PrismaElement, len(mesh.Triangles))
	for i := range botElems {
		botElems[i] = prism.PrismaElement{TemplateID: i, MatID: 1, Power: material.Uniform(0.05), PowerRatio: 1.0 / float64(len(mesh.Triangles))}
	}

	topBC := bc.Uniform(bc.HTC, 2000)
	m := prism.Model{
		Materials:    db,
		VerticalMode: prism.SingleTemplate,
		Layers: []prism.PrismaLayer{
			{Elevation: 0.0005, Thickness: 0.0005, Mesh: mesh, Elements: elems},
			{Elevation: 0, Thickness: 0.0005, Mesh: mesh, Elements: botElems},
		},
		TopBC: &topBC,
	}

	ext := prism.New(m, cfg.RefT)
	net, sum, err := ext.Build(nil)
	if err != nil {
		log.Fatalf("prism extraction failed: %v", err)
	}
	fmt.Printf("Prism extraction: %d boundary nodes, %d fixed-T nodes, %d stacked contacts\n",
		sum.BoundaryNodes, sum.FixedTNodes, sum.StackedContacts)
	return net, m
}
