package kickstart

import "context"

// Task is a unit of work queued on a FrameworkConfiguration. Tasks run one at
// a time and each returns only once its work has fully settled.
type Task func(ctx context.Context, config *FrameworkConfiguration) error

// runTasks drains tasks in order. Each task is removed from the queue before
// it runs, so tasks appended while draining run in the same drain and a
// drained queue is a no-op. The first error stops the drain and is returned
// unchanged.
func runTasks(ctx context.Context, config *FrameworkConfiguration, tasks *[]Task) error {
	for len(*tasks) > 0 {
		current := (*tasks)[0]
		*tasks = (*tasks)[1:]

		if err := current(ctx, config); err != nil {
			return err
		}
	}
	return nil
}
