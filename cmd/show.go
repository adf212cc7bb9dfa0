package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCommand = &cobra.Command{
	Use:   "show",
	Short: "parse a problem file and print its clauses",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		if err := showExec(); err != nil {
			fmt.Printf("show err: %v\n", err)
		}
	},
}

func init() {
	showCommand.Flags().StringVar(&problemFile, "file", "", "problem file")
}

func showExec() error {
	problem, err := loadProblem(problemFile)
	if err != nil {
		return err
	}
	for _, name := range problem.Names {
		v := problem.Vars[name]
		fmt.Printf("%s: %s\n", name, v.Sort())
	}
	for _, clause := range problem.Clauses {
		for i, l := range clause {
			if i > 0 {
				fmt.Print(" | ")
			}
			if l.Neg {
				fmt.Printf("!(%s)", l.Atom)
			} else {
				fmt.Print(l.Atom)
			}
		}
		fmt.Println()
	}
	return nil
}
