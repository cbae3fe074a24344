// Package schedule drives repeated exports for "pivotal watch".
//
// A Runner serializes export cycles. Two sources feed it: a cron
// Scheduler (robfig/cron, standard five-field expressions) and a
// FileWatcher (fsnotify) that fires after writes to the input file have
// been quiet for the debounce interval.
//
//	runner := schedule.NewRunner(runExport)
//	sched := schedule.NewScheduler("*/15 * * * *", runner)
//	if err := sched.Start(ctx); err != nil { ... }
//
//	fw, _ := schedule.NewFileWatcher("data/input.csv", 500*time.Millisecond)
//	go fw.Watch(ctx, func() { runner.Trigger(ctx, schedule.TriggerFile) })
package schedule
