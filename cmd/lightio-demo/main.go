package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayrat555/lightio"
)

var (
	version = "0.1.0-dev"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "lightio-demo",
		Short:   "lightio-demo - exercise the lightio fiber scheduler",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSleepCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn count fibers that yield to each other and print their interleaving",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := lightio.NewScheduler(lightio.DefaultOptions())
			group := lightio.NewFiberGroup()
			for i := 0; i < count; i++ {
				id := i
				group.Spawn(s, func(f *lightio.Fiber) (any, error) {
					for step := 0; step < 3; step++ {
						fmt.Printf("fiber %d: step %d\n", id, step)
						if err := f.Yield(); err != nil {
							return nil, err
						}
					}
					return id, nil
				})
			}
			if err := s.Run(); err != nil {
				return err
			}
			return group.WaitAll()
		},
	}
	cmd.Flags().IntVarP(&count, "count", "c", 3, "number of fibers to spawn")
	return cmd
}

func newSleepCommand() *cobra.Command {
	var seconds float64
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Spawn one fiber that sleeps for the given duration, timed end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := lightio.NewScheduler(lightio.DefaultOptions())
			start := time.Now()
			s.Spawn(func(f *lightio.Fiber) (any, error) {
				if err := lightio.Sleep(seconds); err != nil {
					return nil, err
				}
				return nil, nil
			})
			if err := s.Run(); err != nil {
				return err
			}
			fmt.Printf("slept for %s\n", time.Since(start))
			return nil
		},
	}
	cmd.Flags().Float64VarP(&seconds, "seconds", "s", 1, "seconds to sleep")
	return cmd
}
