// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestAddAndWrite(t *testing.T) {
	c := qt.New(t)
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	c.Assert(builder.Add("test", strings.NewReader("idunvovkjnreovmegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.Add("test2", strings.NewReader("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.files, qt.HasLen, 2)
	c.Assert(builder.files[0].Size, qt.Equals, int64(31))

	c.Assert(builder.Add("test", strings.NewReader("again")), qt.ErrorMatches, ".*duplicate name \"test\"")
	c.Assert(builder.Len(), qt.Equals, 2)

	var buf bytes.Buffer
	num, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(num, qt.Equals, int64(buf.Len()))
	c.Assert(buf.Bytes()[:MagicLength], qt.DeepEquals, magic[:])

	size, err := binaryToint64(buf.Bytes()[MagicLength:])
	c.Assert(err, qt.IsNil)
	var header Header
	start := MagicLength + HeaderSizeNumberLength
	c.Assert(gobDecode(&header, buf.Bytes()[start:start+int(size)]), qt.IsNil)
	c.Assert(header.Author, qt.Equals, "devblok")
	c.Assert(header.Index, qt.HasLen, 2)
	c.Assert(header.Index[1].Offset, qt.Equals, header.Index[0].CompressedSize)
}

func TestCloseRemovesTemp(t *testing.T) {
	c := qt.New(t)
	builder, err := NewBuilder(Header{})
	c.Assert(err, qt.IsNil)
	c.Assert(builder.Add("a", strings.NewReader("a")), qt.IsNil)
	c.Assert(builder.Close(), qt.IsNil)

	_, err = os.Stat(builder.tempDir)
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}
