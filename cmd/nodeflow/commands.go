package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/api"
	"github.com/BaSui01/nodeflow/config"
	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

// =============================================================================
// ▶️ run 命令
// =============================================================================

// runCommand 对单个输入执行一次流程，结果以 JSON 写入 stdout
func runCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flowPath := fs.String("flow", "", "Path to flow definition (YAML)")
	input := fs.String("input", "-", `Input JSON, "-" reads stdin`)
	configPath := fs.String("config", "", "Path to config file")
	events := fs.Bool("events", false, "Print node events to stderr")
	verbose := fs.Bool("verbose", false, "Write logs to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if *verbose {
		cfg.Log.OutputPaths = []string{"stderr"}
		logger = initLogger(cfg.Log)
		defer func() { _ = logger.Sync() }()
	}

	def, err := loadDefinition(newParser(cfg.Engine, logger, nil), *flowPath)
	if err != nil {
		return err
	}

	payload, err := readInput(*input, stdin)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx := types.WithRunID(context.Background(), runID)
	if *events {
		ctx = workflow.WithStreamEmitter(ctx, jsonLineEmitter(runID, stderr))
	}

	root := workflow.Wrap(def.Root, workflow.Recover(), workflow.Timeout(cfg.Engine.ExecutionTimeout))
	out, err := root.Execute(ctx, payload)
	if err != nil {
		logger.Warn("flow failed", zap.String("flow", def.Name), zap.String("run_id", runID), zap.Error(err))
		return fmt.Errorf("flow %s failed: %w", def.Name, err)
	}
	logger.Info("flow executed", zap.String("flow", def.Name), zap.String("run_id", runID))

	data, err := json.Marshal(out)
	if err != nil {
		return types.NewUnknownError("flow result is not encodable").WithCause(err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

func readInput(input string, stdin io.Reader) (types.Payload, error) {
	var data []byte
	if input == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return types.Payload{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = raw
	} else {
		data = []byte(input)
	}
	if strings.TrimSpace(string(data)) == "" {
		return types.Payload{}, types.NewDecodeError("input is empty")
	}
	return types.ParseJSON(data)
}

// jsonLineEmitter 将节点事件逐行写为 JSON，可被并发调用
func jsonLineEmitter(runID string, w io.Writer) workflow.StreamEmitter {
	var mu sync.Mutex
	return func(ev workflow.StreamEvent) {
		data, err := json.Marshal(api.FromWorkflowEvent(runID, ev))
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintln(w, string(data))
	}
}

// =============================================================================
// ✅ validate 命令
// =============================================================================

// validateCommand 解析并校验流程定义，不执行
func validateCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stdout)
	flowPath := fs.String("flow", "", "Path to flow definition (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *flowPath == "" {
		return errors.New("--flow is required")
	}

	def, err := newParser(config.DefaultEngineConfig(), zap.NewNop(), nil).ParseFile(*flowPath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "flow %q is valid\n", def.Name)
	return err
}
