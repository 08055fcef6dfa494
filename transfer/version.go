package transfer

import "math/bits"

// Version is the transfer package version.
const Version = "0.1.0"

// Info describes how this build stores parameters.
type Info struct {
	Version string
	// WordBits is the width of one change-bitmap word on this platform.
	WordBits int
	// Encoding names the value encoding.
	Encoding string
}

// GetInfo returns the build description printed by `paramxfer version`.
func GetInfo() Info {
	return Info{
		Version:  Version,
		WordBits: bits.UintSize,
		Encoding: "IEEE-754 binary32 via atomic uint32",
	}
}
