package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/factcheck/internal/model"
)

// Checker runs one fact-check over an input text
type Checker interface {
	Check(ctx context.Context, text string) (*model.Report, error)
}

// CheckJob fact-checks one input of a batch
type CheckJob struct {
	Index   int
	Input   string
	Checker Checker
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	report, err := j.Checker.Check(ctx, j.Input)
	return &CheckResult{
		Index:  j.Index,
		Input:  j.Input,
		Report: report,
		Error:  err,
	}
}

// CheckResult is the outcome of one batch input
type CheckResult struct {
	Index  int
	Input  string
	Report *model.Report
	Error  error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor runs independent fact-checks concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessInputs checks every input and returns results in input order.
// Inputs never started because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*CheckResult {
	if len(inputs) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, input := range inputs {
		if !pool.Submit(&CheckJob{Index: i, Input: input, Checker: b.checker}) {
			break
		}
	}

	out := make([]*CheckResult, len(inputs))
	for _, result := range pool.Wait() {
		r := result.(*CheckResult)
		out[r.Index] = r
	}
	for i := range out {
		if out[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &CheckResult{Index: i, Input: inputs[i], Error: fmt.Errorf("not started: %w", err)}
		}
	}

	return out
}

// ProcessFile reads inputs from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads one input text per line, skipping blank and
// comment lines and duplicates
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return inputs, nil
}
