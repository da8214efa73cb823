package profiler

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// CallbackFunc is a function that can be supplied with the WithCallback
// option to be executed when the profiling run is performing teardown.
// It has access to the *Profiler instance.
type CallbackFunc func(p *Profiler)

// runActive is used as a flag to determine if a profiling run has
// begun, to manage cases of Start/Stop calls out of order.
var runActive uint32

// Profiler encapsulates one profiling run bracketing a program.
type Profiler struct {
	profileType    ProfileType
	outputDir      string
	signalHandling bool
	quiet          bool
	callback       CallbackFunc
	interrupted    bool
}

// Start enables profiling for the whole program. It is typically
// deferred from main:
//
//	func main() {
//		defer profiler.Start().Stop()
//		...
//	}
//
// With no options the run records both time and memory. Start exits
// the process when a run is already active or the output files cannot
// be initialized; a program that wants to handle those failures calls
// EnableProfiling directly.
func Start(options ...StartOption) *Profiler {
	if !atomic.CompareAndSwapUint32(&runActive, 0, 1) {
		die("profiler run has already been started")
	}
	p := &Profiler{
		profileType:    ProfileBoth,
		outputDir:      ".",
		signalHandling: true,
	}
	for _, opt := range options {
		opt(p)
	}
	setOutputDir(p.outputDir)
	if err := EnableProfiling(true, p.profileType); err != nil {
		die(err.Error())
	}

	// Register an asynchronous teardown handler unless the user has
	// opted to take full control of exit handling themselves.
	if p.signalHandling && ProfilingEnabled {
		go func() {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			<-ch
			p.report("signal received, performing tear down")
			p.interrupted = true
			p.Stop()
			os.Exit(0)
		}()
	}
	return p
}

// Stop disables profiling and flushes the folded output files. The
// files stay on disk; Stop reports where to find them.
func (p *Profiler) Stop() {
	if !atomic.CompareAndSwapUint32(&runActive, 1, 0) {
		die("profiler run was not started")
	}
	DisableProfiling()
	if ProfilingEnabled {
		flushWriters()
	}
	if p.callback != nil {
		p.callback(p)
	}
	if !ProfilingEnabled {
		return
	}
	out := profilePaths()
	if p.profileType.includesTime() {
		p.report("time profile written to %s", out.time)
	}
	if p.profileType.includesMemory() {
		p.report("memory profile written to %s", out.memory)
	}
	if p.interrupted {
		p.report("[warning] profiling was interrupted, data may be incomplete")
	}
}

// report writes an informational log event. If the WithQuietOutput
// option is provided, this is a no-op.
func (p *Profiler) report(format string, args ...any) {
	if !p.quiet {
		logger.Info().Msgf(format, args...)
	}
}

// die exits the process with a message. Startup failures of the
// profiling run are not recoverable.
func die(because string) {
	logger.Fatal().Msgf("profiler run exited: %s", because)
}
