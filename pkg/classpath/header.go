package classpath

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const classMagic = 0xCAFEBABE

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// ErrInvalidClass is returned for data that is not a well-formed class file.
var ErrInvalidClass = errors.New("invalid class file")

// Header is the identity part of a class file. Names use the dotted binary
// form (java.lang.Runnable).
type Header struct {
	Name        string
	Super       string // empty for java.lang.Object and module-info
	Interfaces  []string
	AccessFlags uint16
}

// poolEntry keeps the two constant kinds a header needs.
type poolEntry struct {
	tag       uint8
	utf8      string
	nameIndex uint16
}

// ReadHeader decodes the header of a class file.
func ReadHeader(r io.Reader) (*Header, error) {
	br := bufio.NewReader(r)
	read := func(v any) error { return binary.Read(br, binary.BigEndian, v) }

	var magic uint32
	if err := read(&magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic number: %v", ErrInvalidClass, err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("%w: magic number 0x%X", ErrInvalidClass, magic)
	}
	var version [2]uint16
	if err := read(&version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %v", ErrInvalidClass, err)
	}

	var count uint16
	if err := read(&count); err != nil {
		return nil, fmt.Errorf("%w: reading constant pool count: %v", ErrInvalidClass, err)
	}
	pool, err := readPool(br, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClass, err)
	}

	var fixed struct {
		Access, This, Super, NumInterfaces uint16
	}
	if err := read(&fixed); err != nil {
		return nil, fmt.Errorf("%w: reading class info: %v", ErrInvalidClass, err)
	}
	h := &Header{AccessFlags: fixed.Access}
	if h.Name, err = className(pool, fixed.This); err != nil {
		return nil, fmt.Errorf("%w: this_class: %v", ErrInvalidClass, err)
	}
	if fixed.Super != 0 {
		if h.Super, err = className(pool, fixed.Super); err != nil {
			return nil, fmt.Errorf("%w: super_class: %v", ErrInvalidClass, err)
		}
	}

	indices := make([]uint16, fixed.NumInterfaces)
	if err := read(indices); err != nil {
		return nil, fmt.Errorf("%w: reading interfaces: %v", ErrInvalidClass, err)
	}
	for i, idx := range indices {
		name, err := className(pool, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: interface %d: %v", ErrInvalidClass, i, err)
		}
		h.Interfaces = append(h.Interfaces, name)
	}
	return h, nil
}

// readPool reads count-1 constants. The result is indexed like the class
// file: entry 0 is unused and long/double constants take two slots.
func readPool(r *bufio.Reader, count uint16) ([]poolEntry, error) {
	pool := make([]poolEntry, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("constant %d: reading tag: %w", i, err)
		}
		pool[i].tag = tag

		var skip int
		switch tag {
		case tagUtf8:
			var n uint16
			if err := binary.Read(r, binary.BigEndian, &n); err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
			pool[i].utf8 = string(buf)
		case tagClass:
			if err := binary.Read(r, binary.BigEndian, &pool[i].nameIndex); err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
		case tagString, tagMethodType, tagModule, tagPackage:
			skip = 2
		case tagMethodHandle:
			skip = 3
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			skip = 4
		case tagLong, tagDouble:
			skip = 8
			i++
		default:
			return nil, fmt.Errorf("constant %d: unknown tag %d", i, tag)
		}
		if skip > 0 {
			if _, err := r.Discard(skip); err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
		}
	}
	return pool, nil
}

func className(pool []poolEntry, idx uint16) (string, error) {
	if int(idx) >= len(pool) || pool[idx].tag != tagClass {
		return "", fmt.Errorf("constant %d is not a class", idx)
	}
	nameIdx := pool[idx].nameIndex
	if int(nameIdx) >= len(pool) || pool[nameIdx].tag != tagUtf8 {
		return "", fmt.Errorf("constant %d is not a name", nameIdx)
	}
	return strings.ReplaceAll(pool[nameIdx].utf8, "/", "."), nil
}
