package expr

import (
	"fmt"
	"sort"

	"github.com/sarchlab/ccgen/ccerr"
	"github.com/sarchlab/ccgen/emit"
	"github.com/sarchlab/ccgen/ir"
)

// resolveBitMasks finds each ref's DSM bit, requires all of them to live in
// the same 32-bit DSM word, and returns that word index plus each operand's
// individual bit mask within it, in ref order. It emits nothing; callers
// that only need the combined mask use bitCast, callers that need to
// distinguish the operands (operator&&, operator||, operator^^) use this
// directly.
func (e *Engine) resolveBitMasks(refs []ir.Reference) (word int, masks []uint32, err error) {
	if len(refs) == 0 {
		return 0, nil, ccerr.Internal("bit-cast requires at least one operand")
	}
	addrs := make([]int, len(refs))
	masks = make([]uint32, len(refs))
	for i, r := range refs {
		smBit, ok := e.Datapath.GetSmBit(r.Index)
		if !ok {
			return 0, nil, ccerr.Internal("classical bit %d has no allocated DSM bit", r.Index)
		}
		addrs[i] = smBit / 32
		masks[i] = 1 << uint(smBit%32)
	}
	for _, a := range addrs[1:] {
		if a != addrs[0] {
			return 0, nil, ccerr.User("bit operands span multiple 32-bit DSM words; this could be split into multiple transfers but isn't supported")
		}
	}
	return addrs[0], masks, nil
}

// emitBitCastLoad emits the seq_cl_sm/seq_wait/move_sm/nop sequence that
// transfers DSM word into REG_TMP0. The caller follows with its own
// and/nop/jcc against the masks resolveBitMasks returned for that word.
func (e *Engine) emitBitCastLoad(word int) {
	e.Code.Emit("", emit.SeqClSm, fmt.Sprintf("S%d", word), "")
	e.Code.Emit("", emit.SeqWait, "3", "")
	e.Code.Emit("", emit.MoveSm, RegTmp0, "")
	e.Code.Emit("", emit.Nop, "", "")
}

// bitCast is resolveBitMasks+emitBitCastLoad collapsed into the combined OR
// mask, for the single-bit and all-bits-together cases (operator!, a bare
// bit Reference in predicate position).
func (e *Engine) bitCast(refs []ir.Reference) (uint32, error) {
	word, masks, err := e.resolveBitMasks(refs)
	if err != nil {
		return 0, err
	}
	e.emitBitCastLoad(word)
	var combined uint32
	for _, mk := range masks {
		combined |= mk
	}
	return combined, nil
}

// bitRefs collects a slice of classical-bit leaf expressions as References,
// rejecting anything but bare bit-register Reference nodes (the Non-goal
// excludes arbitrary nesting for these operators too).
func bitRefs(operands []ir.Expression) ([]ir.Reference, error) {
	refs := make([]ir.Reference, 0, len(operands))
	for _, o := range operands {
		r, ok := o.(ir.Reference)
		if !ok || r.Kind != ir.BitRegister {
			return nil, ccerr.Internal("expected a bit-register operand, got %T", o)
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// sortedMaskBits returns the bit positions set in mask, ascending.
func sortedMaskBits(mask uint32) []int {
	var bits []int
	for i := 0; i < 32; i++ {
		if mask&(1<<uint(i)) != 0 {
			bits = append(bits, i)
		}
	}
	sort.Ints(bits)
	return bits
}
