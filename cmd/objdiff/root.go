// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package main wires the engine's external interface to the diff
// pipeline: four required paths, a debug flag, and the exit-code
// contract.
package main

import (
	"fmt"
	"os"

	"github.com/patchkit-dev/objdiff/diff"
	"github.com/patchkit-dev/objdiff/diff/config"
	"github.com/patchkit-dev/objdiff/internal/ilog"
	"github.com/spf13/cobra"
)

var (
	sourcePath  string
	patchedPath string
	runningPath string
	outputPath  string
	cfgFile     string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "objdiff",
	Short: "Diff two relocatable objects into a minimal live-patch module",
	Long: `objdiff correlates a source and a patched relocatable object compiled from
the same translation unit, classifies what changed, and emits a third
relocatable object containing only the changed functions and data plus
the metadata needed to splice them into the currently running binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runObjdiff,
}

func init() {
	rootCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "source relocatable object (required)")
	rootCmd.Flags().StringVarP(&patchedPath, "patched", "p", "", "patched relocatable object (required)")
	rootCmd.Flags().StringVarP(&runningPath, "running", "r", "", "currently running ELF executable or shared object (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path for the diffed relocatable object (required)")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug-level diagnostics")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "policy config file (default: .objdiff.yaml in $HOME or cwd)")
	for _, name := range []string{"source", "patched", "running", "output"} {
		cobra.CheckErr(rootCmd.MarkFlagRequired(name))
	}
}

func runObjdiff(cmd *cobra.Command, args []string) error {
	minLevel := ilog.LevelInfo
	if debug {
		minLevel = ilog.LevelDebug
	}
	log := ilog.New(os.Stderr, sourcePath, minLevel)

	policy, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	result, err := diff.Run(diff.Inputs{
		SourcePath:  sourcePath,
		PatchedPath: patchedPath,
		RunningPath: runningPath,
		OutputPath:  outputPath,
	}, policy, log)
	if err != nil {
		return err
	}
	if !result.Wrote {
		return nil
	}
	log.Infof("wrote %s (%d patch entries)", outputPath, result.PatchEntryCount)
	return nil
}

// Execute runs the root command, exiting 1 on any error (0 on success
// or "nothing to do").
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
