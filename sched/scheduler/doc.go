/*
package scheduler provides JobScheduler, which runs submitted jobs on a bounded
worker pool under resource admission control.

* Concepts *
Priority:
  0 CRITICAL, dispatches ahead of everything else; held at the queue head when denied, never demoted.
  1 HIGH
  2 NORMAL
  3 LOW, the demotion floor.
Note: within a priority, jobs dispatch in arrival order. A job the monitor refuses
      at dispatch time is demoted one level and requeued at its new priority's tail,
      trading placement for admission instead of rejecting outright.

PoolSize:
  The number of jobs run concurrently. Sized statically by config, or from the
  resource monitor's OptimalPoolSize at construction. A cancelled job occupies its
  slot until its worker observes the cancellation and winds down.

MaxQueueSize:
  Hard cap on queued+active jobs. Submissions beyond it fail fast with
  ErrQueueFull; this is the scheduler's only backpressure.

* Logic *
Dispatch pass (on submission, on a job finishing, on the DispatchInterval tick):
Compute capacity = PoolSize - active; stop if no capacity or nothing queued.
Pop jobs best-priority-first, oldest-first, discarding entries cancelled while queued.
For each popped job, re-check admission against current load:
 allowed: hand to the execution envelope, consuming a slot
 denied at CRITICAL: hold at the queue head for a later pass
 denied below CRITICAL: demote one level, requeue at the new tail
A job is examined at most once per pass.
*/
package scheduler
