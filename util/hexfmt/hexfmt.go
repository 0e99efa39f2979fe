// Package hexfmt formats nibble and word values as hex text, adapted from
// S370's util/hex for this CPU's 4-bit/16-bit widths instead of S370's
// 8/16/32-bit fields.
package hexfmt

/*
 * nibvm - Convert nibbles/words to hex strings
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"io"
	"strings"

	"github.com/rcornwell/nibvm/types"
)

var hexMap = "0123456789ABCDEF"

// FormatNibble appends a single hex digit for n.
func FormatNibble(str *strings.Builder, n types.Nibble) {
	str.WriteByte(hexMap[n&0xf])
}

// FormatWord appends the 4-digit hex form of a 16-bit word.
func FormatWord(str *strings.Builder, w types.Word) {
	shift := 12
	for range 4 {
		str.WriteByte(hexMap[(w>>shift)&0xf])
		shift -= 4
	}
}

// FormatPagePtr appends the 2-digit hex form of an 8-bit page offset.
func FormatPagePtr(str *strings.Builder, p types.PagePtr) {
	str.WriteByte(hexMap[(p>>4)&0xf])
	str.WriteByte(hexMap[p&0xf])
}

// WriteNibbles writes a packed run of nibbles as hex digits, grouped into
// 4-nibble words by a space, the same grouping DumpHex uses.
func WriteNibbles(w io.Writer, nibbles []types.Nibble) error {
	var b strings.Builder
	for i, n := range nibbles {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		FormatNibble(&b, n)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
