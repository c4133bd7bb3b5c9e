// Package ass rewrites Advanced SubStation Alpha subtitle files in place.
//
// It normalizes the [Script Info] header, stamps PlayRes values, parses the
// "Font subset:" comments left by subsetting tools, resolves subset font names
// back to real names, and embeds or unpacks fonts in the [Fonts] section using
// the printable 6-bit encoding that Aegisub and libass understand.
package ass
