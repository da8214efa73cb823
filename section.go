package profiler

// ProfileSection ties a profile's lifetime to an explicit End call,
// letting a region narrower than a function be measured.
type ProfileSection struct {
	profile *Profile
}

// Section starts profiling a named region of the calling function. End
// the returned section where the region ends; a section that is never
// ended simply never emits.
func Section(name string, opts ...SectionOption) *ProfileSection {
	return newSection(name, opts)
}

// MethodSection starts an unnamed region inside a method; the
// backtrace supplies the Type.method identity.
func MethodSection(opts ...SectionOption) *ProfileSection {
	return newSection("", opts)
}

func newSection(name string, opts []SectionOption) *ProfileSection {
	cfg := sectionConfig{profileType: ProfileTime}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ProfileSection{
		profile: newProfile(name, "", cfg.profileType, cfg.async, name == "", ""),
	}
}

// End finishes the section and emits its events. A section ends once;
// later calls and ends of inactive sections do nothing.
func (s *ProfileSection) End() {
	if s == nil || s.profile == nil {
		return
	}
	s.profile.End()
	s.profile = nil
}

// IsActive reports whether the section holds a live profile.
func (s *ProfileSection) IsActive() bool {
	return s != nil && s.profile != nil
}
