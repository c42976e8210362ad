package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jorge-barreto/agentdag/internal/config"
	"github.com/jorge-barreto/agentdag/internal/notify"
	"github.com/jorge-barreto/agentdag/internal/runstate"
	"github.com/jorge-barreto/agentdag/internal/scheduler"
	"github.com/jorge-barreto/agentdag/internal/steprunner"
	"github.com/jorge-barreto/agentdag/internal/ux"
	"github.com/jorge-barreto/agentdag/internal/workflow"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "agentdag",
		Usage:       "File-driven DAG orchestrator for long-running agent steps",
		Description: "Drives a workflow's steps to completion by watching for report files a wrapper process writes; never inspects child exit codes.",
		Commands: []*cli.Command{
			runCmd(),
			resumeCmd(),
			statusCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Start a new run of a workflow",
		ArgsUsage: "<workflow.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to the options YAML (default: agentdag.yaml next to the workflow file)"},
			&cli.StringFlag{Name: "repo", Usage: "repo root the run's .agents/ directory lives under (default: cwd)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflowPath := cmd.Args().First()
			if workflowPath == "" {
				return fmt.Errorf("workflow path argument is required")
			}

			wf, cfg, repoDir, promptRoot, err := loadRunInputs(cmd, workflowPath)
			if err != nil {
				return err
			}

			sched := scheduler.New(wf, cfg, repoDir, promptRoot, notify.NewMultiSink(notify.NewConsoleSink()))
			fmt.Printf("%sRun:%s %s\n", ux.Bold, ux.Reset, sched.RunID)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			return runAndReport(sched, ctx)
		},
	}
}

func resumeCmd() *cli.Command {
	return &cli.Command{
		Name:      "resume",
		Usage:     "Resume a prior run from its persisted state",
		ArgsUsage: "<workflow.yaml> <run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to the options YAML (default: agentdag.yaml next to the workflow file)"},
			&cli.StringFlag{Name: "repo", Usage: "repo root the run's .agents/ directory lives under (default: cwd)"},
			&cli.StringFlag{Name: "start-at-step", Usage: "reset this step and its descendants to PENDING before resuming (default: the config's start_at_step)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflowPath := cmd.Args().Get(0)
			runID := cmd.Args().Get(1)
			if workflowPath == "" || runID == "" {
				return fmt.Errorf("usage: agentdag resume <workflow.yaml> <run-id>")
			}

			wf, cfg, repoDir, promptRoot, err := loadRunInputs(cmd, workflowPath)
			if err != nil {
				return err
			}

			startAtStep := cmd.String("start-at-step")
			if startAtStep == "" {
				startAtStep = cfg.StartAtStep
			}

			sched, err := scheduler.Resume(wf, cfg, repoDir, promptRoot, runID, startAtStep, notify.NewMultiSink(notify.NewConsoleSink()))
			if err != nil {
				return fmt.Errorf("resuming run: %w", err)
			}
			fmt.Printf("%sRun:%s %s (resumed)\n", ux.Bold, ux.Reset, sched.RunID)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			return runAndReport(sched, ctx)
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the status of a run",
		ArgsUsage: "<run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "repo", Usage: "repo root the run's .agents/ directory lives under (default: cwd)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runID := cmd.Args().First()
			if runID == "" {
				return fmt.Errorf("run-id argument is required")
			}

			repoDir, err := repoDirFlag(cmd)
			if err != nil {
				return err
			}

			statePath := runstate.Path(repoDir, runID)
			rs, found, err := runstate.Load(statePath)
			if err != nil {
				return fmt.Errorf("loading run state: %w", err)
			}
			if !found {
				return fmt.Errorf("no run state found for %q at %s", runID, statePath)
			}

			ux.RenderStatus(rs, steprunner.ArtifactsDir(repoDir, runID))
			return nil
		},
	}
}

// loadRunInputs resolves the workflow, options, repo root, and prompt root
// shared by the run and resume subcommands. The options file defaults to
// agentdag.yaml beside the workflow file, and the prompt root defaults to
// the workflow file's own directory when the options file doesn't set one
// (§6 "prompt_root" falls back after the packaged-prompt override).
func loadRunInputs(cmd *cli.Command, workflowPath string) (*workflow.Workflow, *config.Config, string, string, error) {
	wf, err := workflow.Load(workflowPath)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("loading workflow: %w", err)
	}

	configPath := cmd.String("config")
	if configPath == "" {
		configPath = filepath.Join(filepath.Dir(workflowPath), "agentdag.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("loading config: %w", err)
	}

	repoDir, err := repoDirFlag(cmd)
	if err != nil {
		return nil, nil, "", "", err
	}

	promptRoot := cfg.PromptRoot
	if promptRoot == "" {
		promptRoot = filepath.Dir(workflowPath)
	}

	return wf, cfg, repoDir, promptRoot, nil
}

func repoDirFlag(cmd *cli.Command) (string, error) {
	if repo := cmd.String("repo"); repo != "" {
		return repo, nil
	}
	return os.Getwd()
}

// runAndReport drives sched to completion and renders the terminal outcome
// (§6 "Exit semantics": success iff every step is COMPLETED or SKIPPED).
// A process-level error (the deadlock sentinel or a state-save failure) is
// distinct from an ordinary FAILED step and is returned as-is so the
// caller's non-zero exit carries the real cause. A ctx cancellation
// mid-run marks the unfinished steps FAILED with "cancelled", so it is
// reported as a failed run.
func runAndReport(sched *scheduler.Scheduler, ctx context.Context) error {
	if err := sched.Run(ctx); err != nil {
		ux.ResumeHint(sched.RunID)
		return err
	}
	if !sched.RunState.Succeeded() {
		ux.ResumeHint(sched.RunID)
		return fmt.Errorf("run %s: one or more steps failed", sched.RunID)
	}
	ux.Success(sched.RunID, len(sched.RunState.Steps))
	return nil
}
