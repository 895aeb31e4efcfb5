// Package scheduler runs background jobs on cron schedules through
// github.com/robfig/cron/v3.
//
// The application uses it for the periodic store health probe:
//
//	s := scheduler.NewWithContext(ctx, scheduler.Config{Logger: log})
//	probe := scheduler.NewStoreProbe(items, log)
//	if _, err := probe.Register(s, "@every 30s"); err != nil {
//		return err
//	}
//	s.Start()
//	defer s.Stop()
//
// Jobs get the scheduler context, canceled on Stop, optionally bounded by
// JobOptions.Timeout. Errors and panics are logged and never stop the
// scheduler.
package scheduler
