// Package async runs named, independent tasks on a bounded number of goroutines.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Task is a unit of work identified by Name. Names must be unique within one Execute call.
type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

// Result carries a task's output keyed by the task's name.
type Result struct {
	Name string
	Data any
	Err  error
}

// Pool bounds how many tasks run at once. A Pool is safe to reuse across Execute calls.
type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan Task, results chan<- Result) {
	defer wg.Done()
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Name: task.Name, Err: err}
			continue
		}
		results <- run(ctx, task)
	}
}

func run(ctx context.Context, task Task) (result Result) {
	result.Name = task.Name
	defer func() {
		if r := recover(); r != nil {
			result.Data = nil
			result.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	result.Data, result.Err = task.Execute(ctx)
	return result
}

// Execute runs every task and returns one Result per task name.
// Tasks not started before ctx is cancelled report ctx.Err().
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	results := make(map[string]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	taskCh := make(chan Task)
	resultCh := make(chan Result, len(tasks))

	workers := p.workerCount
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, taskCh, resultCh)
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	wg.Wait()
	close(resultCh)

	for result := range resultCh {
		results[result.Name] = result
	}
	return results
}

// FirstError returns the first failing result's error in task order, or nil.
func FirstError(tasks []Task, results map[string]Result) error {
	for _, task := range tasks {
		if r, ok := results[task.Name]; ok && r.Err != nil {
			return fmt.Errorf("%s: %w", task.Name, r.Err)
		}
	}
	return nil
}
