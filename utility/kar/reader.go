// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"fmt"
	"io"
	"sort"

	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// Open opens the kar archived from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	head := make([]byte, MagicLength+HeaderSizeNumberLength)
	if num, err := r.ReadAt(head, 0); num < len(head) {
		if err == nil || err == io.EOF {
			err = ErrFileFormat
		}
		return nil, fmt.Errorf("kar.Open(): %w", err)
	}
	if string(head[:MagicLength]) != string(magic[:]) {
		return nil, fmt.Errorf("kar.Open(): %w", ErrFileFormat)
	}

	headerSize, err := binaryToint64(head[MagicLength:])
	if err != nil || headerSize <= 0 {
		return nil, fmt.Errorf("kar.Open(): %w", ErrFileFormat)
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, int64(len(head))); int64(num) < headerSize {
		if err == nil || err == io.EOF {
			err = ErrFileFormat
		}
		return nil, fmt.Errorf("kar.Open(): %w", err)
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, fmt.Errorf("kar.Open(): %v: %w", err, ErrFileFormat)
	}

	ar := &Archive{
		reader:     r,
		header:     header,
		index:      make(map[string]IndexEntry, len(header.Index)),
		dataOffset: int64(len(head)) + headerSize,
	}
	for _, e := range header.Index {
		ar.index[e.Name] = e
	}
	return ar, nil
}

// OpenFile memory maps the archive at path
func OpenFile(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kar.OpenFile(): %w", err)
	}
	ar, err := Open(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	ar.closer = r
	return ar, nil
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader     io.ReaderAt
	closer     io.Closer
	header     Header
	index      map[string]IndexEntry
	dataOffset int64
}

// Header returns the archive header
func (a *Archive) Header() Header {
	return a.header
}

// Names returns the sorted names of all files
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.index))
	for name := range a.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stat returns the index entry of a file
func (a *Archive) Stat(name string) (IndexEntry, error) {
	e, ok := a.index[name]
	if !ok {
		return IndexEntry{}, fmt.Errorf("kar.Archive.Stat(): %q: %w", name, ErrNotFound)
	}
	return e, nil
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (*Reader, error) {
	e, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("kar.Archive.Open(): %q: %w", name, ErrNotFound)
	}
	section := io.NewSectionReader(a.reader, a.dataOffset+e.Offset, e.CompressedSize)
	return &Reader{
		entry:  e,
		reader: lz4.NewReader(section),
	}, nil
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data := make([]byte, r.Size())
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("kar.Archive.ReadAll(): %q: %w", name, err)
	}
	if n, _ := r.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("kar.Archive.ReadAll(): %q: %w", name, ErrSize)
	}
	return data, nil
}

// Find returns the contents of name, it lets archives serve as
// resource sources
func (a *Archive) Find(name string) ([]byte, error) {
	return a.ReadAll(name)
}

// Close releases the memory map of archives opened with OpenFile
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry  IndexEntry
	reader io.Reader
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}

// Size returns the uncompressed size of the file
func (r *Reader) Size() int64 {
	return r.entry.Size
}
