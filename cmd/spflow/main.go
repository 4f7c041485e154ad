// Package main provides the spflow CLI.
package main

import (
	"flag"
	"fmt"
	"maps"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/born-ml/spflow/autodiff"
	"github.com/born-ml/spflow/backend/cpu"
	"github.com/born-ml/spflow/internal/backends"
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/spn"
	"github.com/born-ml/spflow/tensor"
	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func usage() {
	fmt.Println("spflow - Sum-Product Networks for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: spflow [klog flags] <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  info       List backends, leaf families and module kinds")
	fmt.Println("  demo       Build a small mixture, query, sample and train it")
	fmt.Println("  inspect    Describe a circuit saved in .spn format")
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()

	if flag.NArg() == 0 {
		usage()
		return
	}

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "version":
		fmt.Printf("spflow %s\n", version)
	case "info":
		info()
	case "demo":
		err = demo(args)
	case "inspect":
		err = inspect(args)
	default:
		usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "spflow: %v\n", err)
		os.Exit(1)
	}
}

func info() {
	fmt.Printf("Backends:      %s (default %q, override with %s)\n",
		strings.Join(backends.List(), ", "), backends.DefaultConfig, backends.EnvVar)
	fmt.Printf("Leaf families: %s\n", strings.Join(spn.Families(), ", "))
	kinds := dispatch.Default.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	fmt.Printf("Module kinds:  %s registered\n", humanize.Comma(int64(len(kinds))))
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
}

// demoCircuit builds 0.3·N(x0;0,1)N(x1;0,1) + 0.7·N(x0;1,1)N(x1;2,1).
func demoCircuit(backend tensor.Backend) (spn.Module, error) {
	var leaves []spn.Module
	for _, p := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 2}} {
		l, err := spn.NewGaussian(backend, int(p[0]), p[1], 1)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, l)
	}
	p1, err := spn.NewProduct(leaves[0], leaves[1])
	if err != nil {
		return nil, err
	}
	p2, err := spn.NewProduct(leaves[2], leaves[3])
	if err != nil {
		return nil, err
	}
	return spn.NewSum([]spn.Module{p1, p2}, []float64{0.3, 0.7})
}

func demo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	n := fs.Int("n", 1000, "number of samples to draw")
	steps := fs.Int("steps", 20, "EM steps")
	seed := fs.Uint64("seed", 42, "random seed")
	out := fs.String("o", "", "save the trained circuit to this .spn file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := spn.NewBackend()
	if err != nil {
		return err
	}
	root, err := demoCircuit(backend)
	if err != nil {
		return err
	}
	modules := 0
	_ = spn.Walk(root, func(spn.Module) error { modules++; return nil })
	fmt.Printf("Circuit: %d modules over %d variables on %s\n", modules, spn.NumVariables(root), backend.Name())

	data := tensor.MustFromRows([][]float64{{0.5, 1.6}})
	ll, err := spn.LogLikelihood(root, data, spn.DefaultLogLikelihoodConfig())
	if err != nil {
		return err
	}
	fmt.Printf("log p(x0=0.5, x1=1.6) = %.6f\n", ll.At(0, 0))

	marginal, err := spn.Marginalize(root, []int{1}, true)
	if err != nil {
		return err
	}
	ll, err = spn.LogLikelihood(marginal, tensor.MustFromRows([][]float64{{0.5}}), spn.DefaultLogLikelihoodConfig())
	if err != nil {
		return err
	}
	fmt.Printf("log p(x0=0.5)         = %.6f\n", ll.At(0, 0))

	cfg := spn.DefaultSampleConfig()
	cfg.Src = rand.NewPCG(*seed, *seed+1)
	samples, err := spn.Sample(root, *n, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Sampled %s instances (%s)\n", humanize.Comma(int64(samples.Rows())),
		humanize.Bytes(uint64(samples.NumElements()*8)))

	trainable, err := spn.ToBackend(root, autodiff.New(cpu.New()))
	if err != nil {
		return err
	}
	history, err := spn.ExpectationMaximization(trainable, samples, spn.EMConfig{MaxSteps: *steps, Tolerance: 1e-8})
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Printf("EM: %d steps, mean log-likelihood %.4f -> %.4f\n", len(history), history[0], history[len(history)-1])
	}
	if s, ok := trainable.(*spn.SumNode); ok {
		fmt.Printf("Learned weights: %.3f\n", s.Weights())
	}
	if *out != "" {
		if err := spn.Save(*out, trainable, map[string]string{"source": "spflow demo"}); err != nil {
			return err
		}
		fmt.Printf("Saved to %s\n", *out)
	}
	return nil
}

func inspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: spflow inspect <file.spn>")
	}
	stat, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	root, header, err := spn.Load(args[0], cpu.New())
	if err != nil {
		return err
	}
	fmt.Printf("File:      %s (%s)\n", args[0], humanize.Bytes(uint64(stat.Size())))
	fmt.Printf("Format:    v%d, written by spflow %s %s\n",
		header.FormatVersion, header.SPFlowVersion, humanize.Time(header.CreatedAt))
	fmt.Printf("Root:      %s over %d variables, %d outputs\n", root.Kind(), spn.NumVariables(root), root.NumOut())

	counts := make(map[string]int)
	var params int64
	for _, m := range header.Modules {
		counts[m.Kind]++
	}
	for _, t := range header.Tensors {
		params += t.Size / 8
	}
	fmt.Printf("Modules:   %s stored, %s parameters\n",
		humanize.Comma(int64(len(header.Modules))), humanize.Comma(params))
	kinds := slices.Sorted(maps.Keys(counts))
	for _, k := range kinds {
		fmt.Printf("  %-22s %d\n", k, counts[k])
	}
	for k, v := range header.Metadata {
		fmt.Printf("  meta %s = %s\n", k, v)
	}
	return nil
}
