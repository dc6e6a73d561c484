package ccerr_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ccgen/ccerr"
)

var _ = Describe("Error taxonomy", func() {
	It("tags each constructor with its kind", func() {
		Expect(ccerr.Is(ccerr.User("bad input"), ccerr.KindUser)).To(BeTrue())
		Expect(ccerr.Is(ccerr.SignalConflict("clash"), ccerr.KindSignalConflict)).To(BeTrue())
		Expect(ccerr.Is(ccerr.TimeTravel("negative padding"), ccerr.KindTimeTravel)).To(BeTrue())
		Expect(ccerr.Is(ccerr.Internal("unreachable"), ccerr.KindInternal)).To(BeTrue())
	})

	It("does not cross-match kinds", func() {
		Expect(ccerr.Is(ccerr.User("bad input"), ccerr.KindInternal)).To(BeFalse())
	})

	It("accumulates context frames innermost first", func() {
		var err error = ccerr.User("bad signal shape")
		err = ccerr.WithContext(err, "instruction \"x90\"")
		err = ccerr.WithContext(err, "bundle at cycle 3")

		ce, ok := err.(*ccerr.Error)
		Expect(ok).To(BeTrue())
		Expect(ce.Context).To(Equal([]string{"instruction \"x90\"", "bundle at cycle 3"}))
	})

	It("wraps a non-Error into KindInternal rather than dropping context", func() {
		plain := errors.New("boom")
		wrapped := ccerr.WithContext(plain, "somewhere")

		Expect(ccerr.Is(wrapped, ccerr.KindInternal)).To(BeTrue())
		Expect(wrapped.Error()).To(ContainSubstring("boom"))
		Expect(wrapped.Error()).To(ContainSubstring("somewhere"))
	})

	It("returns nil unchanged", func() {
		Expect(ccerr.WithContext(nil, "frame")).To(BeNil())
	})

	It("unwraps to the wrapped error", func() {
		inner := errors.New("inner")
		ce := &ccerr.Error{Kind: ccerr.KindInternal, Message: "outer", Wrapped: inner}
		Expect(errors.Unwrap(ce)).To(Equal(inner))
	})
})
