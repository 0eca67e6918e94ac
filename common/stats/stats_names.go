package stats

/*
This file defines all the metrics being collected.  As new metrics are added please follow this pattern.
*/

const (
	/************************** Monitor metrics ****************************/
	/*
		latest sampled system RAM utilization (percent)
	*/
	MonitorRAMPctGauge = "ramPctGauge"

	/*
		latest sampled system CPU utilization (percent)
	*/
	MonitorCPUPctGauge = "cpuPctGauge"

	/*
		latest sampled available system RAM (bytes)
	*/
	MonitorRAMFreeGauge = "ramFreeGauge"

	/*
		current health classification (0 healthy, 1 warning, 2 critical)
	*/
	MonitorHealthLevelGauge = "healthLevelGauge"

	/*
		number of times sampling the system failed and the unknown snapshot was served
	*/
	MonitorSampleErrCounter = "sampleErrCounter"

	/*
		number of admission checks that allowed a job with headroom to spare
	*/
	MonitorAdmitOkCounter = "admitOkCounter"

	/*
		number of admission checks that allowed a job while above a warning threshold
	*/
	MonitorAdmitWarnCounter = "admitWarnCounter"

	/*
		number of admission checks that denied a job
	*/
	MonitorAdmitDeniedCounter = "admitDeniedCounter"

	/*
		number of health state transitions emitted by the watcher
	*/
	MonitorHealthEventCounter = "healthEventCounter"

	/************************* Scheduler metrics ***************************/
	/*
		time to accept or reject a job submission
	*/
	SchedSubmitLatency_ms = "submitLatency_ms"

	/*
		number of jobs accepted into the queue
	*/
	SchedSubmitCounter = "submitCounter"

	/*
		number of submissions rejected because the queue was at capacity
	*/
	SchedSubmitRejectedCounter = "submitRejectedCounter"

	/*
		time spent in one dispatch pass
	*/
	SchedDispatchLatency_ms = "dispatchLatency_ms"

	/*
		number of jobs handed to the pool
	*/
	SchedJobStartedCounter = "jobStartedCounter"

	/*
		number of jobs that finished with a result
	*/
	SchedJobCompletedCounter = "jobCompletedCounter"

	/*
		number of jobs that finished with a work error
	*/
	SchedJobFailedCounter = "jobFailedCounter"

	/*
		number of jobs that exceeded their timeout budget
	*/
	SchedJobTimedOutCounter = "jobTimedOutCounter"

	/*
		number of jobs cancelled, whether queued or running
	*/
	SchedJobCancelledCounter = "jobCancelledCounter"

	/*
		number of jobs terminally denied by admission control
	*/
	SchedJobDeniedCounter = "jobDeniedCounter"

	/*
		number of priority demotions applied to denied jobs
	*/
	SchedJobDemotedCounter = "jobDemotedCounter"

	/*
		number of jobs currently waiting in the queue
	*/
	SchedQueueSizeGauge = "queueSizeGauge"

	/*
		number of jobs currently holding a pool slot
	*/
	SchedActiveJobsGauge = "activeJobsGauge"

	/*
		per-priority queued jobs gauge prefix, suffixed with the priority number
	*/
	SchedQueuedPriorityGaugePrefix = "queuedJobsGauge_p"

	/*
		time from shutdown request until the pool drained or the grace expired
	*/
	SchedShutdownLatency_ms = "shutdownLatency_ms"

	/*************************** Worker metrics ****************************/
	/*
		wall time of one run through the execution envelope, including cleanup
	*/
	WorkerRunLatency_ms = "runLatency_ms"

	/*
		time a job spent queued before being handed to the pool
	*/
	WorkerQueueWaitLatency_ms = "queueWaitLatency_ms"

	/*
		number of cleanup calls that returned an error (logged, never surfaced)
	*/
	WorkerCleanupErrCounter = "cleanupErrCounter"

	/*
		number of runs that ended in a recovered panic
	*/
	WorkerPanicCounter = "workPanicCounter"

	/*************************** Daemon metrics ****************************/
	/*
		milliseconds since the daemon started
	*/
	UptimeGauge_ms = "uptimeGauge_ms"

	/*
		spiked to 1 on process start so restarts stand out in dashboards
	*/
	ServerStartedGauge = "serverStartedGauge"
)
