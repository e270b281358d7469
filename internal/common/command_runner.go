package common

import (
	"context"
	"fmt"

	"careerboost/internal/ai"
	"careerboost/internal/errors"
)

// CreateInputFunc builds the AI input from the extracted document texts
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// AIOperationFunc runs one AI operation and reports its token usage
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// ReportFunc turns the AI output into the value that gets formatted
type ReportFunc[Output any] func(Output) (any, error)

// AICommand describes a file-based AI command
type AICommand[Input, Output any] struct {
	Files       *FileProcessor
	Output      *OutputHandler
	Logger      *errors.Logger
	CreateInput CreateInputFunc[Input]
	Run         AIOperationFunc[Input, Output]
	Report      ReportFunc[Output]
}

// Execute extracts the documents in paths, runs the AI operation and
// writes the formatted report
func (c AICommand[Input, Output]) Execute(ctx context.Context, cfg CommandConfig, paths ...string) error {
	contents, err := c.Files.ReadDocuments(paths...)
	if err != nil {
		return err
	}

	input, err := c.CreateInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	result, usage, err := c.Run(ctx, input)
	if err != nil {
		return err
	}
	if usage != nil {
		c.Logger.Info("AI token usage",
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
			"total_tokens", usage.TotalTokens)
	}

	report, err := c.Report(result)
	if err != nil {
		return err
	}
	return c.Output.HandleOutput(report, cfg)
}
