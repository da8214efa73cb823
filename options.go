package profiler

// SectionOption configures a profile section.
type SectionOption func(*sectionConfig)

type sectionConfig struct {
	profileType ProfileType
	async       bool
}

// WithTime records elapsed time only. This is the default for
// sections.
func WithTime() SectionOption {
	return func(c *sectionConfig) {
		c.profileType = ProfileTime
	}
}

// WithMemory records memory deltas only.
func WithMemory() SectionOption {
	return func(c *sectionConfig) {
		c.profileType = ProfileMemory
	}
}

// WithBoth records elapsed time and memory deltas.
func WithBoth() SectionOption {
	return func(c *sectionConfig) {
		c.profileType = ProfileBoth
	}
}

// WithAsync marks the section as running on a spawned goroutine; its
// display name gains the async:: prefix.
func WithAsync() SectionOption {
	return func(c *sectionConfig) {
		c.async = true
	}
}

// InstrumentOption configures Profiled, Wrap, WrapAsync and Go.
type InstrumentOption func(*instrumentConfig)

type instrumentConfig struct {
	profileType ProfileType
	qualifier   string
	isMethod    bool
	async       bool
}

// WithType fixes the profile type for this call site instead of
// following the global selector.
func WithType(pt ProfileType) InstrumentOption {
	return func(c *instrumentConfig) {
		c.profileType = pt
	}
}

// WithGlobalType makes the call site follow the selector passed to
// EnableProfiling. This is the default.
func WithGlobalType() InstrumentOption {
	return func(c *instrumentConfig) {
		c.profileType = ProfileTypeUnset
	}
}

// WithImpl qualifies a method with its implementing type; the registry
// key becomes "Type.method".
func WithImpl(typeName string) InstrumentOption {
	return func(c *instrumentConfig) {
		c.qualifier = typeName
		c.isMethod = true
	}
}

// WithInterfaceName qualifies a method with the interface it
// implements, for call sites reached through interface dispatch.
func WithInterfaceName(name string) InstrumentOption {
	return func(c *instrumentConfig) {
		c.qualifier = name
		c.isMethod = true
	}
}

// WithMethod marks the call site as a method without naming the type;
// the backtrace's receiver supplies the qualification.
func WithMethod() InstrumentOption {
	return func(c *instrumentConfig) {
		c.isMethod = true
	}
}

// WithGoroutine marks the function as running on a spawned goroutine;
// its display name gains the async:: prefix.
func WithGoroutine() InstrumentOption {
	return func(c *instrumentConfig) {
		c.async = true
	}
}

// StartOption configures a profiling run started with Start.
type StartOption func(*Profiler)

// WithProfileType selects which signals the run records. Runs default
// to ProfileBoth.
func WithProfileType(pt ProfileType) StartOption {
	return func(p *Profiler) {
		p.profileType = pt
	}
}

// WithProfileFileLocation allows a custom output folder for the folded
// files that are written to disk.
func WithProfileFileLocation(path string) StartOption {
	return func(p *Profiler) {
		p.outputDir = path
	}
}

// WithoutSignalHandling disables the signal handling for the run. This
// is useful for cases where you want to handle the signal yourself. Be
// sure to invoke Stop yourself in your code and handle the os.Exit()
// yourself etc.
func WithoutSignalHandling() StartOption {
	return func(p *Profiler) {
		p.signalHandling = false
	}
}

// WithCallback executes a user defined function when clean up occurs,
// after the output files are flushed. Callbacks have access to the
// underlying *Profiler instance, which is typically useful for
// persisting the folded files to a central store once they are
// complete.
func WithCallback(callback CallbackFunc) StartOption {
	return func(p *Profiler) {
		p.callback = callback
	}
}

// WithQuietOutput prevents the run from writing informational log
// events.
func WithQuietOutput() StartOption {
	return func(p *Profiler) {
		p.quiet = true
	}
}
