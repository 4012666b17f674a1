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
	"fmt"
	"os"

	"github.com/notargets/fdtria/InputParameters"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const exampleFile = `
########################################
Title: "Sweep"
Defaults:
  ranks: 4
  source: shared        # or distributed
  partitioner: metis    # zorder, block, roundrobin
  degree: 2
Runs:
  - {dim: 2, refinements: 2, subdivisions: 4}
  - {dim: 3, refinements: 1, subdivisions: 2, ranks: 3}
########################################
`

// batchCmd represents the batch command
func (a *app) batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run every construction listed in a YAML input file",
		Long: `Run every construction listed in a YAML input file, printing one status line per run.
Each run starts from the Defaults of the file and overrides the keys it names.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ip, err := processInput(a.cfg.GetString("inputConditionsFile"))
			if err != nil {
				return err
			}
			ip.Print(cmd.ErrOrStderr())
			return runBatch(cmd, ip, a.cfg.GetBool("perf"))
		},
	}
	a.bind(cmd, []option{
		{name: "inputConditionsFile", shorthand: "I", usage: "YAML file listing the runs:" + exampleFile, defaultVal: ""},
	})
	return cmd
}

func processInput(file string) (ip *InputParameters.InputParameters, err error) {
	if len(file) == 0 {
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile), example file:%s", exampleFile)
	}
	var data []byte
	if data, err = os.ReadFile(file); err != nil {
		return
	}
	ip = &InputParameters.InputParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return
}

func runBatch(cmd *cobra.Command, ip *InputParameters.InputParameters, count bool) error {
	runs, err := ip.Params()
	if err != nil {
		return err
	}
	var failed int
	for _, p := range runs {
		if _, err = execute(cmd.OutOrStdout(), p, count); err != nil {
			failed++
		}
	}
	log.WithFields(log.Fields{
		"runs":   len(runs),
		"failed": failed,
	}).Info("batch finished")
	return nil
}
