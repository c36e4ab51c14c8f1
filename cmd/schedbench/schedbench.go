// Copyright 2024 The Schedbench Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/schedbench/schedbench/pkg/backend"
	"github.com/schedbench/schedbench/pkg/cluster"
	"github.com/schedbench/schedbench/pkg/config"
	logcfg "github.com/schedbench/schedbench/pkg/log"
	"github.com/schedbench/schedbench/pkg/measurements"
	"github.com/schedbench/schedbench/pkg/report"
	"github.com/schedbench/schedbench/pkg/submitter"
	"github.com/schedbench/schedbench/pkg/version"
)

var binName = filepath.Base(os.Args[0])

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   binName,
	Short: "Measure end-to-end scheduling latency of gang-scheduled batch workloads",
	Long: `schedbench ⏱

Submits batches of workloads, samples the cluster resources they produce and
correlates the timestamps into per-milestone scheduling latency metrics.`,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of schedbench",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Version:", version.Version)
		fmt.Println("Git Commit:", version.GitCommit)
		fmt.Println("Build Date:", version.BuildDate)
		fmt.Println("Go Version:", version.GoVersion)
		fmt.Println("OS/Arch:", version.OsArch)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Generates completion scripts for bash shell",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rootCmd.GenBashCompletion(os.Stdout)
	},
}

type commonFlags struct {
	configFile   string
	kubeconfig   string
	outputDir    string
	project      string
	workloadType string
}

func (f *commonFlags) addTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to a settings file")
	cmd.Flags().StringVar(&f.kubeconfig, "kubeconfig", "", "Path to a kubeconfig file")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Output dir")
	cmd.Flags().StringVarP(&f.project, "project", "p", "", "Project to use")
	cmd.Flags().StringVarP(&f.workloadType, "workload-type", "t", string(config.TrainingWorkload), "Workload type: training, distributed or interactive")
}

// spec loads the settings file and applies the flag overrides
func (f *commonFlags) spec() config.Spec {
	spec, err := config.Parse(f.configFile)
	if err != nil {
		log.Fatal(err.Error())
	}
	if f.outputDir != "" {
		spec.OutputDir = f.outputDir
	}
	if f.project != "" {
		spec.Project = f.project
	}
	return spec
}

func (f *commonFlags) workload() config.WorkloadType {
	switch t := config.WorkloadType(f.workloadType); t {
	case config.TrainingWorkload, config.DistributedWorkload, config.InteractiveWorkload:
		return t
	}
	log.Fatalf("Invalid workload type: %s", f.workloadType)
	return ""
}

func submitCmd() *cobra.Command {
	var flags commonFlags
	var params submitter.Params
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a batch of workloads and record their submission times",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			spec := flags.spec()
			params.WorkloadType = flags.workload()
			params.Project = spec.Project
			client, err := cluster.NewClient(flags.kubeconfig)
			if err != nil {
				log.Fatal(err.Error())
			}
			s := submitter.New(client.Dynamic(), spec.Submit)
			s.Flush = func(records []measurements.SubmissionRecord) {
				if err := report.WriteJSON(spec.OutputDir, report.SubmittedFile, records); err != nil {
					log.Error(err.Error())
				}
			}
			records, err := s.Run(cmd.Context(), params)
			if err != nil {
				log.Fatal(err.Error())
			}
			log.Info("Writing final submission results")
			if err := report.WriteJSON(spec.OutputDir, report.SubmittedFile, records); err != nil {
				log.Fatal(err.Error())
			}
			log.Infof("Submitted %d workloads", len(records))
		},
	}
	flags.addTo(cmd)
	cmd.Flags().IntVarP(&params.Count, "num-workloads", "n", 1, "Number of workloads to submit")
	cmd.Flags().StringVar(&params.NumWorkers, "num-workers", "1", "Number of workers in a distributed workload")
	cmd.Flags().StringVarP(&params.NumGPUs, "num-gpus", "g", "1", "Number of gpus per pod")
	cmd.Flags().BoolVar(&params.PVC, "pvc", false, "Add a PVC to the submitted workloads")
	return cmd
}

func sampleCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample cluster resources and extract per-workload milestone times",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			spec := flags.spec()
			workloadType := flags.workload()
			ctx := cmd.Context()

			client, err := cluster.NewClient(flags.kubeconfig)
			if err != nil {
				log.Fatal(err.Error())
			}
			resources, err := client.ListResources(ctx, workloadType, spec.Namespace(), spec.Sampler.SchedulerEventTimes)
			if err != nil {
				log.Fatal(err.Error())
			}

			// Backend errors are not fatal: sampling proceeds, affected
			// workloads are excluded at extraction for lack of a record
			var backendRecords []measurements.BackendRecord
			if spec.Sampler.BackendTimes {
				backendClient, err := backend.NewClient(ctx, spec.Sampler.Database)
				if err != nil {
					log.Error(err.Error())
				} else {
					defer backendClient.Close()
					if backendRecords, err = backendClient.FetchJobRecords(ctx, workloadType, spec.Project); err != nil {
						log.Error(err.Error())
					}
				}
			}

			cfg := measurements.Config{
				BackendTimes: spec.Sampler.BackendTimes,
			}
			events := measurements.ClassifyEvents(resources.Events, resources.PodGroups)
			data := measurements.JoinResources(resources.Workloads, resources.Jobs, resources.Pods, resources.PodGroups, events, backendRecords)
			times := measurements.ExtractTimes(data, cfg)
			if err := report.WriteJSON(spec.OutputDir, report.SampledFile, times); err != nil {
				log.Fatal(err.Error())
			}
			log.Infof("Generated time info for %d workloads", len(times))
		},
	}
	flags.addTo(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	var flags commonFlags
	var skipErrors bool
	var head, tail int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Correlate submission and sample results into latency series",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			spec := flags.spec()
			if cmd.Flags().Changed("skip-errors") {
				spec.Report.SkipErroneous = skipErrors
			}
			if cmd.Flags().Changed("head") {
				spec.Report.Head = head
			}
			if cmd.Flags().Changed("tail") {
				spec.Report.Tail = tail
			}

			submitted, err := report.ReadSubmitted(spec.OutputDir)
			if err != nil {
				log.Fatal(err.Error())
			}
			sampled, err := report.ReadSampled(spec.OutputDir)
			if err != nil {
				log.Fatal(err.Error())
			}

			cfg := measurements.Config{
				BackendTimes:  spec.Sampler.BackendTimes,
				SkipErroneous: spec.Report.SkipErroneous,
				Head:          spec.Report.Head,
				Tail:          spec.Report.Tail,
			}
			merged := measurements.MergeSubmissions(sampled, submitted)
			result := measurements.Aggregate(merged, cfg)
			if len(result.Rows) == 0 {
				log.Warn("No data")
			}
			if err := report.WriteTimesCSV(spec.OutputDir, result); err != nil {
				log.Fatal(err.Error())
			}
			if err := report.WriteJSON(spec.OutputDir, report.SummaryFile, measurements.Summarize(result)); err != nil {
				log.Fatal(err.Error())
			}
			log.Infof("Reported %d workloads (%d discarded out of %d considered)", len(result.Rows), result.Discarded, result.Total)
		},
	}
	flags.addTo(cmd)
	cmd.Flags().BoolVar(&skipErrors, "skip-errors", true, "Skip workloads with erroneous times, excluding them from the result")
	cmd.Flags().IntVar(&head, "head", 0, "Process only this number of workloads from the start")
	cmd.Flags().IntVar(&tail, "tail", 0, "Process only this number of workloads from the end")
	return cmd
}

func main() {
	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Allowed values: debug, info, warn, error, fatal")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := logcfg.SetLogLevel(logLevel); err != nil {
			log.Fatal(err.Error())
		}
	}
	rootCmd.AddCommand(versionCmd, completionCmd, submitCmd(), sampleCmd(), reportCmd())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
