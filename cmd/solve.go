package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gosls/internal/arith"
	"gosls/internal/num"
	"gosls/internal/parse"
	"gosls/internal/sat"
	"gosls/internal/search"
)

var solveCommand = &cobra.Command{
	Use:   "solve",
	Short: "solve a constraint problem",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		if err := solveExec(); err != nil {
			fmt.Printf("solve err: %v\n", err)
			os.Exit(1)
		}
	},
}

var (
	problemFile string
	seed        int64
	maxSteps    int
	numMode     string
	debug       bool
)

func init() {
	solveCommand.Flags().StringVar(&problemFile, "file", "", "problem file")
	solveCommand.Flags().Int64Var(&seed, "seed", 0, "random seed")
	solveCommand.Flags().IntVar(&maxSteps, "steps", 0, "step budget, 0 for default")
	solveCommand.Flags().StringVar(&numMode, "mode", "rat", "numeric mode: rat or int64")
	solveCommand.Flags().BoolVar(&debug, "debug", false, "debug logging")
}

func solveExec() error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	problem, err := loadProblem(problemFile)
	if err != nil {
		return err
	}
	cfg := search.DefaultConfig()
	cfg.Seed = seed
	if maxSteps > 0 {
		cfg.MaxSteps = maxSteps
	}
	solver, err := buildSolver(problem, cfg, numMode)
	if err != nil {
		return err
	}
	res := solver.Solve()
	fmt.Println(res.Status)
	if res.Status == search.Sat {
		fmt.Println(res.Model)
	}
	return nil
}

func loadProblem(path string) (*parse.Problem, error) {
	if path == "" {
		return nil, errors.New("no problem file, use --file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open problem")
	}
	defer f.Close()
	return parse.Parse(f)
}

func buildSolver(problem *parse.Problem, cfg search.Config, mode string) (*search.Solver, error) {
	s := search.NewSolver(cfg)
	for _, clause := range problem.Clauses {
		lits := make([]sat.Lit, 0, len(clause))
		for _, l := range clause {
			lits = append(lits, sat.MkLit(s.BoolVar(l.Atom), l.Neg))
		}
		s.AddClause(lits...)
	}
	switch mode {
	case "rat":
		s.Register(arith.New[num.Rat](s))
	case "int64":
		s.Register(arith.New[num.Int](s))
	default:
		return nil, errors.Errorf("unknown numeric mode %q", mode)
	}
	return s, nil
}
