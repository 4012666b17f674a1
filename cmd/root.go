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
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// option is a flag that is also a configuration key
type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	persistent             bool
}

// app holds the configuration shared by the commands of one invocation
type app struct {
	cfg     *viper.Viper
	profile interface{ Stop() }
}

// Execute runs the command line and exits non zero only when the command line itself is wrong
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		log.WithError(err).Error("fdtria: invalid command line, see fdtria --help")
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with a fresh configuration
func NewRootCmd() *cobra.Command {
	a := &app{cfg: viper.New()}
	root := &cobra.Command{
		Use:   "fdtria",
		Short: "Construct fully distributed triangulations on in-process ranks",
		Long: `fdtria builds a globally refined hypercube, partitions it over a number of ranks,
extracts the construction data of every rank and reconstructs the local meshes from it.
Degrees of freedom are numbered on the result to prove every rank holds what it needs.

Configuration is read from $HOME/.fdtria.yaml or the file given with --config, flags
override it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}
	a.bind(root, []option{
		{name: "config", usage: "configuration file (default is $HOME/.fdtria.yaml)", defaultVal: "", persistent: true},
		{name: "log-level", usage: "logging level: debug, info, warn or error", defaultVal: "info", persistent: true},
		{name: "profile", usage: "write a cpu or mem profile of the command to the current directory", defaultVal: "", persistent: true},
		{name: "perf", usage: "count the CPU instructions of every construction", defaultVal: false, persistent: true},
	})
	root.AddCommand(a.runCmd(), a.batchCmd())
	return root
}

// bind defines the options on cmd and binds each to the configuration key of its name
func (a *app) bind(cmd *cobra.Command, opts []option) {
	for _, o := range opts {
		set := cmd.Flags()
		if o.persistent {
			set = cmd.PersistentFlags()
		}
		switch v := o.defaultVal.(type) {
		case string:
			set.StringP(o.name, o.shorthand, v, o.usage)
		case int:
			set.IntP(o.name, o.shorthand, v, o.usage)
		case bool:
			set.BoolP(o.name, o.shorthand, v, o.usage)
		default:
			panic("invalid option type")
		}
		if err := a.cfg.BindPFlag(o.name, set.Lookup(o.name)); err != nil {
			panic(err)
		}
	}
}

func (a *app) setup(cmd *cobra.Command) (err error) {
	if err = a.setConfig(); err != nil {
		return
	}
	var level log.Level
	if level, err = log.ParseLevel(a.cfg.GetString("log-level")); err != nil {
		return
	}
	log.SetLevel(level)
	log.SetOutput(cmd.ErrOrStderr())

	switch kind := a.cfg.GetString("profile"); kind {
	case "":
	case "cpu":
		a.profile = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
	case "mem":
		a.profile = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
	default:
		return fmt.Errorf("unknown profile %q, want cpu or mem", kind)
	}
	return
}

func (a *app) teardown() {
	if a.profile != nil {
		a.profile.Stop()
		a.profile = nil
	}
}

// setConfig reads the configuration file given with --config, or $HOME/.fdtria.yaml if
// there is one
func (a *app) setConfig() error {
	path := a.cfg.GetString("config")
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".fdtria.yaml")
		if _, err = os.Stat(path); err != nil {
			return nil
		}
	}
	a.cfg.SetConfigFile(path)
	if err := a.cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("fdtria: problem reading configuration file: %v", err)
	}
	log.WithField("file", a.cfg.ConfigFileUsed()).Debug("read configuration")
	return nil
}
