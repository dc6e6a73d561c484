// Package config collects the compile knobs (run_once, verbose,
// map_input_file, output_prefix, static_codewords_required) behind a
// WithX-chain builder.
package config

// Options is one compile's configuration.
type Options struct {
	RunOnce                 bool
	Verbose                 bool
	MapInputFile            string
	OutputPrefix            string
	StaticCodewordsRequired bool
}

// Builder builds Options through chained With* calls.
type Builder struct {
	opts Options
}

// WithRunOnce sets run_once: emit stop instead of looping the main label.
func (b Builder) WithRunOnce(runOnce bool) Builder {
	b.opts.RunOnce = runOnce
	return b
}

// WithVerbose sets verbose. The ccgen command copies it into
// telemetry.Verbose, which gates telemetry's table-dump helpers; it adds no
// explanatory comments to the emitted code.
func (b Builder) WithVerbose(verbose bool) Builder {
	b.opts.Verbose = verbose
	return b
}

// WithMapInputFile sets map_input_file: preload the codeword table and
// restrict assignment to its declared entries.
func (b Builder) WithMapInputFile(path string) Builder {
	b.opts.MapInputFile = path
	return b
}

// WithOutputPrefix sets output_prefix: the base path the emitted code and
// map files are written under. No VCD file is written.
func (b Builder) WithOutputPrefix(prefix string) Builder {
	b.opts.OutputPrefix = prefix
	return b
}

// WithStaticCodewordsRequired rejects instructions lacking a static
// codeword override for a multi-bit group instead of growing the table.
func (b Builder) WithStaticCodewordsRequired(required bool) Builder {
	b.opts.StaticCodewordsRequired = required
	return b
}

// Build returns the collected Options.
func (b Builder) Build() Options {
	return b.opts
}
