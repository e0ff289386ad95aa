package http

import (
	"strings"
	"testing"
)

func TestEthAddrValidation(t *testing.T) {
	type P struct {
		Account string `validate:"ethaddr"`
	}
	cv := NewValidator()

	// valid: 0x + 40 hex chars, either case
	for _, s := range []string{
		"0x" + strings.Repeat("a", 40),
		"0x" + strings.Repeat("A", 40),
		"0xDeadBeef00000000000000000000000000000000",
	} {
		if err := cv.Validate(P{Account: s}); err != nil {
			t.Fatalf("expected valid address %q, got err: %v", s, err)
		}
	}

	// invalid samples
	for _, s := range []string{
		"",                             // empty
		strings.Repeat("a", 42),        // missing prefix
		"0x" + strings.Repeat("a", 39), // too short
		"0x" + strings.Repeat("a", 41), // too long
		"0x" + strings.Repeat("g", 40), // non-hex char
	} {
		err := cv.Validate(P{Account: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		fe := ToFieldErrors(err)
		if !containsFieldMsg(fe, "Account", "40-hex address") {
			t.Fatalf("expected ethaddr message for %q, got: %+v", s, fe)
		}
	}
}

func TestBigIntValidation(t *testing.T) {
	type P struct {
		Amount string `validate:"bigint"`
	}
	cv := NewValidator()

	for _, s := range []string{
		"0",
		"1000",
		"115792089237316195423570985008687907853269984665640564039457584007913129639935", // uint256 max
	} {
		if err := cv.Validate(P{Amount: s}); err != nil {
			t.Fatalf("expected bigint OK for %q, got %v", s, err)
		}
	}
	for _, s := range []string{
		"",      // empty
		"-1",    // negative
		"1.5",   // decimals
		"1e9",   // scientific
		"10 00", // spaces
		"0xff",  // hex
	} {
		err := cv.Validate(P{Amount: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		fe := ToFieldErrors(err)
		if !containsFieldMsg(fe, "Amount", "non-negative integer") {
			t.Fatalf("expected bigint message for %q, got: %+v", s, fe)
		}
	}
}
