package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/internal/dto"
	"github.com/espalierhq/espalier/internal/logging"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <flow-file>",
	Short: "Run a flow from a YAML file to completion",
	Long:  `Loads a flow file, resolves its tasks against the built-in catalog, runs it and prints the final shared context as JSON.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inputJSON, _ := cmd.Flags().GetString("input")
		verbose, _ := cmd.Flags().GetBool("verbose")

		var initial map[string]any
		if inputJSON != "" {
			if err := json.Unmarshal([]byte(inputJSON), &initial); err != nil {
				fmt.Printf("Error: invalid --input JSON: %v\n", err)
				os.Exit(1)
			}
		}

		file, err := dto.Load(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		name, tasks, opts, err := file.Build(builtinCatalog())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		engine := espalier.New(espalier.WithSlog(logging.New(level)))

		if err := engine.Define(name, tasks, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctrl, err := engine.Run(context.Background(), name, initial)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		// In one-shot mode nothing external drives a parked run, so
		// pauses are resumed immediately (unless --no-auto-resume).
		noAutoResume, _ := cmd.Flags().GetBool("no-auto-resume")
		if !noAutoResume {
			go func() {
				ticker := time.NewTicker(20 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctrl.Done():
						return
					case <-ticker.C:
						if ctrl.GetState().Status == espalier.StatusPaused {
							_ = ctrl.Resume(nil)
						}
					}
				}
			}()
		}

		final, err := ctrl.Wait(context.Background())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		out, err := json.MarshalIndent(final, "", "  ")
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("input", "", "Initial shared context as a JSON object")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	runCmd.Flags().Bool("no-auto-resume", false, "Do not automatically resume runs paused from within the flow")
}
