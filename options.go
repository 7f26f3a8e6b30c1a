package ftsreader

// fileOptions controls which optional data blocks Open/OpenMemory
// materialize eagerly (spec §4.4).
type fileOptions struct {
	spectrum            bool
	transmittance       bool
	phase               bool
	interferogram       bool
	secondInterferogram bool
	verbose             bool
}

// OpenOption configures a File at construction time.
type OpenOption func(*fileOptions)

// WithSpectrum eagerly materializes the single-channel spectrum, trying
// "Data Block SpSm" first and falling back to "Data Block ScSm".
func WithSpectrum() OpenOption {
	return func(o *fileOptions) { o.spectrum = true }
}

// WithTransmittance eagerly materializes "Data Block TrSm".
func WithTransmittance() OpenOption {
	return func(o *fileOptions) { o.transmittance = true }
}

// WithPhase eagerly materializes "Data Block PhSm".
func WithPhase() OpenOption {
	return func(o *fileOptions) { o.phase = true }
}

// WithInterferogram eagerly materializes the primary interferogram,
// "Data Block IgSm".
func WithInterferogram() OpenOption {
	return func(o *fileOptions) { o.interferogram = true }
}

// WithSecondChannelInterferogram eagerly materializes
// "Data Block IgSm/2.Chn.".
func WithSecondChannelInterferogram() OpenOption {
	return func(o *fileOptions) { o.secondInterferogram = true }
}

// WithVerbose appends a log line for every block materialized during
// construction, in addition to the always-recorded error conditions.
func WithVerbose() OpenOption {
	return func(o *fileOptions) { o.verbose = true }
}
