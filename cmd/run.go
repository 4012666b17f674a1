/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	perf "github.com/hodgesds/perf-utils"
	"github.com/notargets/fdtria/partition"
	"github.com/notargets/fdtria/pipeline"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <dim> <refinements> <subdivisions>",
		Short: "Construct one distributed triangulation and report success or failure",
		Long: `Construct the triangulation of the unit hypercube of dimension <dim>, split into
<subdivisions> cells per direction and refined globally <refinements> times, on --ranks ranks.
A single status line is printed. A failed construction is reported on that line, it does not
make the command fail.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.params(args)
			if err != nil {
				return err
			}
			execute(cmd.OutOrStdout(), p, a.cfg.GetBool("perf"))
			return nil
		},
	}
	d := pipeline.DefaultParams()
	a.bind(cmd, []option{
		{name: "ranks", shorthand: "p", usage: "number of ranks", defaultVal: d.Ranks},
		{name: "source", usage: "mesh source: shared (every rank sees the whole mesh) or distributed", defaultVal: d.Source},
		{name: "partitioner", usage: fmt.Sprintf("partitioning strategy: %s, %s, %s or %s",
			partition.StrategyZOrder, partition.StrategyBlock, partition.StrategyRoundRobin, partition.StrategyMetis),
			defaultVal: d.Partitioner},
		{name: "degree", usage: "polynomial degree of the element used to number degrees of freedom", defaultVal: d.Degree},
		{name: "scatter", usage: "extract on rank 0 and scatter the encoded data to the ranks", defaultVal: false},
		{name: "output", shorthand: "o", usage: "directory for VTU output of every level and rank, none if empty", defaultVal: ""},
		{name: "prefix", usage: "file name prefix of the VTU output of the local meshes", defaultVal: d.Prefix},
		{name: "source-prefix", usage: "file name prefix of the VTU output of the input mesh slices", defaultVal: d.SourcePrefix},
		{name: "verify", usage: "compare the cells shared between ranks", defaultVal: false},
	})
	return cmd
}

// params combines the positional arguments with the configured options
func (a *app) params(args []string) (p pipeline.Params, err error) {
	var v [3]int
	for i, name := range []string{"dim", "refinements", "subdivisions"} {
		if v[i], err = strconv.Atoi(args[i]); err != nil {
			return p, fmt.Errorf("argument %s: %q is not an integer", name, args[i])
		}
	}
	p = pipeline.Params{
		Dim:          v[0],
		Refinements:  v[1],
		Subdivisions: v[2],
		Ranks:        a.cfg.GetInt("ranks"),
		Source:       a.cfg.GetString("source"),
		Partitioner:  a.cfg.GetString("partitioner"),
		Degree:       a.cfg.GetInt("degree"),
		Scatter:      a.cfg.GetBool("scatter"),
		OutputDir:    a.cfg.GetString("output"),
		Prefix:       a.cfg.GetString("prefix"),
		SourcePrefix: a.cfg.GetString("source-prefix"),
		Verify:       a.cfg.GetBool("verify"),
	}
	return
}

// execute runs one construction and writes its status line to w. Failures end up in the
// log and on the status line only.
func execute(w io.Writer, p pipeline.Params, count bool) (rep *pipeline.Report, err error) {
	run := func() error {
		rep, err = pipeline.Run(context.Background(), p)
		return nil
	}
	if count {
		var ran bool
		pv, perr := perf.CPUInstructions(func() error { ran = true; return run() })
		switch {
		case perr == nil:
			log.WithField("instructions", pv.Value).Info("counted CPU instructions")
		case !ran:
			log.WithError(perr).Warn("CPU instructions cannot be counted")
			_ = run()
		default:
			log.WithError(perr).Warn("CPU instruction count failed")
		}
	} else {
		_ = run()
	}

	fmt.Fprintln(w, pipeline.StatusLine(p, err))
	if err != nil {
		log.WithError(err).Error("construction failed")
		return
	}
	log.WithFields(log.Fields{
		"owned": rep.OwnedPerRank,
		"dofs":  rep.Dofs,
		"files": len(rep.Files),
	}).Info("construction succeeded")
	return
}
