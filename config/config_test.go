package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ccgen/config"
)

var _ = Describe("Builder", func() {
	It("defaults every knob to its zero value", func() {
		opts := config.Builder{}.Build()
		Expect(opts).To(Equal(config.Options{}))
	})

	It("chains With* calls independently of call order", func() {
		opts := config.Builder{}.
			WithOutputPrefix("out/run").
			WithRunOnce(true).
			WithMapInputFile("map.json").
			WithVerbose(true).
			WithStaticCodewordsRequired(true).
			Build()

		Expect(opts).To(Equal(config.Options{
			RunOnce:                 true,
			Verbose:                 true,
			MapInputFile:            "map.json",
			OutputPrefix:            "out/run",
			StaticCodewordsRequired: true,
		}))
	})

	It("returns a fresh Options per Build call, unaffected by later chaining", func() {
		b := config.Builder{}.WithOutputPrefix("a")
		first := b.Build()
		b.WithOutputPrefix("b")
		Expect(first.OutputPrefix).To(Equal("a"))
	})
})
