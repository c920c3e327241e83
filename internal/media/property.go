package media

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fortemezzo/cbird/internal/value"
)

// PropertyKind enumerates the item properties available to filters, sort
// keys and group keys.
type PropertyKind int

const (
	PropID PropertyKind = iota
	PropIsValid
	PropMD5
	PropType
	PropPath
	PropParentPath
	PropName
	PropSuffix
	PropContentType
	PropWidth
	PropHeight
	PropResolution
	PropRes
	PropCompressionRatio
	PropScore
	PropSize
	PropModTime
	PropAttribute
	PropExif
)

var propertyNames = map[string]PropertyKind{
	"id":               PropID,
	"isValid":          PropIsValid,
	"md5":              PropMD5,
	"type":             PropType,
	"path":             PropPath,
	"parentPath":       PropParentPath,
	"name":             PropName,
	"suffix":           PropSuffix,
	"contentType":      PropContentType,
	"width":            PropWidth,
	"height":           PropHeight,
	"resolution":       PropResolution,
	"res":              PropRes,
	"compressionRatio": PropCompressionRatio,
	"score":            PropScore,
	"size":             PropSize,
	"mtime":            PropModTime,
}

// PropertyError reports an invalid property expression.
type PropertyError struct {
	Expr   string
	Reason string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("invalid property %q: %s", e.Expr, e.Reason)
}

// Property is a parsed property expression: a property name followed by
// zero or more transform functions, e.g. "name:upper:mid,0,3" or
// "exif:DateTimeOriginal,DateTime:year".
type Property struct {
	Kind PropertyKind
	// Args holds the exif tag list or the attribute key.
	Args  []string
	Funcs []Func
	expr  string
}

// ParseProperty parses expr. Unknown names and functions are rejected.
func ParseProperty(expr string) (Property, error) {
	parts := strings.Split(expr, ":")
	p := Property{expr: expr}

	name := parts[0]
	rest := parts[1:]
	switch name {
	case "exif", "attr":
		if len(rest) == 0 || rest[0] == "" {
			return Property{}, &PropertyError{Expr: expr, Reason: name + " requires an argument"}
		}
		p.Kind = PropExif
		if name == "attr" {
			p.Kind = PropAttribute
		}
		p.Args = strings.Split(rest[0], ",")
		rest = rest[1:]
	default:
		kind, ok := propertyNames[name]
		if !ok {
			return Property{}, &PropertyError{Expr: expr, Reason: "unknown property " + strconv.Quote(name)}
		}
		p.Kind = kind
	}

	for _, f := range rest {
		fn, err := parseFunc(f)
		if err != nil {
			return Property{}, &PropertyError{Expr: expr, Reason: err.Error()}
		}
		p.Funcs = append(p.Funcs, fn)
	}

	return p, nil
}

// MustParseProperty is like ParseProperty but panics on error.
func MustParseProperty(expr string) Property {
	p, err := ParseProperty(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Property) String() string { return p.expr }

// NeedsFile reports whether evaluating p reads the file.
func (p Property) NeedsFile() bool { return p.Kind == PropExif }

// Value evaluates p for item.
func (p Property) Value(item Item) value.Value {
	v := p.raw(item)
	for _, f := range p.Funcs {
		v = f.apply(v)
	}
	return v
}

func (p Property) raw(m Item) value.Value {
	switch p.Kind {
	case PropID:
		return value.FromInt(m.ID)
	case PropIsValid:
		if m.IsValid() {
			return value.FromInt(1)
		}
		return value.FromInt(0)
	case PropMD5:
		return value.FromString(m.MD5)
	case PropType:
		return value.FromInt(int64(m.Type))
	case PropPath:
		return value.FromString(m.Path)
	case PropParentPath:
		return value.FromString(m.ParentPath())
	case PropName:
		return value.FromString(m.Name())
	case PropSuffix:
		return value.FromString(m.Suffix())
	case PropContentType:
		return value.FromString(m.ContentType())
	case PropWidth:
		return value.FromInt(int64(m.Width))
	case PropHeight:
		return value.FromInt(int64(m.Height))
	case PropResolution:
		return value.FromInt(int64(m.Resolution()))
	case PropRes:
		return value.FromInt(int64(m.Res()))
	case PropCompressionRatio:
		return value.FromFloat(m.CompressionRatio())
	case PropScore:
		if !m.HasScore {
			return value.NullValue()
		}
		return value.FromInt(int64(m.Score))
	case PropSize:
		return value.FromInt(m.Size)
	case PropModTime:
		if m.ModTime.IsZero() {
			return value.NullValue()
		}
		return value.FromTime(m.ModTime)
	case PropAttribute:
		if s, ok := m.Attributes.Get(p.Args[0]); ok {
			return value.FromString(s)
		}
		return value.NullValue()
	case PropExif:
		return exifValue(m.Path, p.Args)
	}
	return value.NullValue()
}

// Func is a value transform applied after a property is read.
type Func struct {
	Name  string
	Args  []string
	apply func(value.Value) value.Value
}

func parseFunc(spec string) (Func, error) {
	fields := strings.Split(spec, ",")
	name, args := fields[0], fields[1:]
	fn := Func{Name: name, Args: args}

	intArg := func(i int) (int, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("%s: missing argument %d", name, i+1)
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return 0, fmt.Errorf("%s: argument %q is not an integer", name, args[i])
		}
		return n, nil
	}

	switch name {
	case "trim":
		fn.apply = stringFunc(strings.TrimSpace)
	case "upper":
		fn.apply = stringFunc(strings.ToUpper)
	case "lower":
		fn.apply = stringFunc(strings.ToLower)
	case "title":
		fn.apply = stringFunc(title)
	case "mid":
		from, err := intArg(0)
		if err != nil {
			return Func{}, err
		}
		length := -1
		if len(args) > 1 {
			if length, err = intArg(1); err != nil {
				return Func{}, err
			}
		}
		fn.apply = stringFunc(func(s string) string { return mid(s, from, length) })
	case "date":
		if len(args) == 0 || args[0] == "" {
			return Func{}, fmt.Errorf("date: missing layout")
		}
		fn.apply = dateFunc(strings.Join(args, ","))
	case "year":
		fn.apply = dateFunc("2006")
	case "month":
		fn.apply = dateFunc("2006-01")
	case "day":
		fn.apply = dateFunc("2006-01-02")
	case "add":
		n, err := intArg(0)
		if err != nil {
			return Func{}, err
		}
		fn.apply = func(v value.Value) value.Value {
			i, ok := toInt(v)
			if !ok {
				return value.NullValue()
			}
			return value.FromInt(i + int64(n))
		}
	case "pad":
		n, err := intArg(0)
		if err != nil {
			return Func{}, err
		}
		fn.apply = func(v value.Value) value.Value {
			i, ok := toInt(v)
			if !ok {
				return value.NullValue()
			}
			return value.FromString(fmt.Sprintf("%0*d", n, i))
		}
	default:
		return Func{}, fmt.Errorf("unknown function %q", name)
	}

	return fn, nil
}

func stringFunc(f func(string) string) func(value.Value) value.Value {
	return func(v value.Value) value.Value {
		if v.IsNull() {
			return v
		}
		return value.FromString(f(v.String()))
	}
}

func dateFunc(layout string) func(value.Value) value.Value {
	return func(v value.Value) value.Value {
		switch v.Kind() {
		case value.Time:
			return value.FromString(v.Time().Format(layout))
		case value.String:
			if t, ok := value.Parse(value.Time, v.String()); ok {
				return value.FromString(t.Time().Format(layout))
			}
		}
		return value.NullValue()
	}
}

func toInt(v value.Value) (int64, bool) {
	switch v.Kind() {
	case value.Int, value.Float:
		return v.Int(), true
	case value.String:
		i, ok := value.Parse(value.Int, v.String())
		return i.Int(), ok
	}
	return 0, false
}

func title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// mid returns length runes of s starting at rune from; a negative length
// means the rest of the string.
func mid(s string, from, length int) string {
	runes := []rune(s)
	if from < 0 {
		from = 0
	}
	if from >= len(runes) {
		return ""
	}
	end := len(runes)
	if length >= 0 && from+length < end {
		end = from + length
	}
	return string(runes[from:end])
}
