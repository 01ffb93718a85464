package table

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// ErrSchema is returned for schemas or field values that do not fit.
var ErrSchema = errors.New("table: schema mismatch")

type ColumnType uint8

const (
	Int ColumnType = iota
	Float
	Varchar
)

func (c ColumnType) String() string {
	switch c {
	case Int:
		return "INT"
	case Float:
		return "FLOAT"
	case Varchar:
		return "VARCHAR"
	}
	return "ColumnType(" + strconv.Itoa(int(c)) + ")"
}

// Column describes one field of a record. Size is the maximum byte length of
// a Varchar and is ignored for the numeric types.
type Column struct {
	Name string
	Type ColumnType
	Size int
}

func (c Column) String() string {
	if c.Type == Varchar {
		return c.Name + " VARCHAR(" + strconv.Itoa(c.Size) + ")"
	}
	return c.Name + " " + c.Type.String()
}

// Schema is an ordered list of columns. Column 0 is the primary key.
type Schema []Column

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Validate checks that the schema can be stored.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.Wrap(ErrSchema, "no columns")
	}
	if s[0].Type != Int {
		return errors.Wrapf(ErrSchema, "primary key %q must be INT, not %s", s[0].Name, s[0].Type)
	}
	seen := make(map[string]bool, len(s))
	for i, c := range s {
		if c.Name == "" {
			return errors.Wrapf(ErrSchema, "column %d has no name", i)
		}
		if seen[c.Name] {
			return errors.Wrapf(ErrSchema, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case Int, Float:
		case Varchar:
			if c.Size <= 0 || c.Size > math.MaxUint16 {
				return errors.Wrapf(ErrSchema, "column %q: varchar size %d out of range", c.Name, c.Size)
			}
		default:
			return errors.Wrapf(ErrSchema, "column %q: unknown type %d", c.Name, c.Type)
		}
	}
	return nil
}

// encode validates fields against the schema and returns the primary key and
// the compressed record.
func (s Schema) encode(fields []string) (int64, []byte, error) {
	if len(fields) != len(s) {
		return 0, nil, errors.Wrapf(ErrSchema, "got %d fields, want %d", len(fields), len(s))
	}
	var key int64
	buf := make([]byte, 0, 64)
	for i, c := range s {
		v := fields[i]
		switch c.Type {
		case Int:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
			if err != nil {
				return 0, nil, errors.Wrapf(ErrSchema, "column %q: %q is not an INT", c.Name, v)
			}
			if i == 0 {
				key = n
			}
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(n)))
		case Float:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
			if err != nil {
				return 0, nil, errors.Wrapf(ErrSchema, "column %q: %q is not a FLOAT", c.Name, v)
			}
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(f)))
		case Varchar:
			if len(v) > c.Size {
				return 0, nil, errors.Wrapf(ErrSchema, "column %q: %d bytes exceeds VARCHAR(%d)", c.Name, len(v), c.Size)
			}
			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(v)))
			buf = append(buf, v...)
		}
	}
	return key, snappy.Encode(nil, buf), nil
}

// decode reverses encode.
func (s Schema) decode(cell []byte) (int64, []string, error) {
	raw, err := snappy.Decode(nil, cell)
	if err != nil {
		return 0, nil, errors.Wrap(err, "table: decompress record")
	}
	short := func(c Column) error {
		return errors.Newf("table: record truncated in column %q", c.Name)
	}
	var key int64
	fields := make([]string, len(s))
	for i, c := range s {
		switch c.Type {
		case Int:
			if len(raw) < 4 {
				return 0, nil, short(c)
			}
			n := int32(binary.LittleEndian.Uint32(raw))
			if i == 0 {
				key = int64(n)
			}
			fields[i] = strconv.FormatInt(int64(n), 10)
			raw = raw[4:]
		case Float:
			if len(raw) < 4 {
				return 0, nil, short(c)
			}
			f := math.Float32frombits(binary.LittleEndian.Uint32(raw))
			fields[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
			raw = raw[4:]
		case Varchar:
			if len(raw) < 2 {
				return 0, nil, short(c)
			}
			n := int(binary.LittleEndian.Uint16(raw))
			if len(raw) < 2+n {
				return 0, nil, short(c)
			}
			fields[i] = string(raw[2 : 2+n])
			raw = raw[2+n:]
		}
	}
	if len(raw) != 0 {
		return 0, nil, errors.Newf("table: %d trailing bytes after record", len(raw))
	}
	return key, fields, nil
}
