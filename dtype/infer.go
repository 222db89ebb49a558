package dtype

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	// DefaultSampleSize bounds the number of strings examined when
	// estimating a string item size.
	DefaultSampleSize = 1000

	// DefaultStringSize is the item size used when no string was sampled.
	DefaultStringSize = 32
)

// Typed is implemented by array-like values that declare their element type.
type Typed interface {
	Dtype() Descriptor
}

// StringSampler is implemented by lazily loaded string columns. SampleStrings
// returns at most n elements from the start of the column.
type StringSampler interface {
	SampleStrings(ctx context.Context, n int) ([]string, error)
}

// InferOption configures Infer.
type InferOption func(*inferOptions)

type inferOptions struct {
	sampleSize        int
	defaultStringSize uint64
	location          string
}

// WithSampleSize sets the number of strings sampled for item size estimation.
func WithSampleSize(n int) InferOption {
	return func(o *inferOptions) {
		if n >= 0 {
			o.sampleSize = n
		}
	}
}

// WithDefaultStringSize sets the fallback item size for empty string samples.
func WithDefaultStringSize(size uint64) InferOption {
	return func(o *inferOptions) {
		if size > 0 {
			o.defaultStringSize = size
		}
	}
}

// WithLocation names the value being inferred in error messages.
func WithLocation(loc string) InferOption {
	return func(o *inferOptions) {
		o.location = loc
	}
}

// Infer determines the element descriptor of v.
func Infer(v any, opts ...InferOption) (Descriptor, error) {
	return InferContext(context.Background(), v, opts...)
}

// InferContext is like Infer. The context is only used when v is a
// StringSampler.
func InferContext(ctx context.Context, v any, opts ...InferOption) (Descriptor, error) {
	o := inferOptions{
		sampleSize:        DefaultSampleSize,
		defaultStringSize: DefaultStringSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	u := &unifier{opts: o}

	switch x := v.(type) {
	case nil:
		return Descriptor{}, ErrUnknownType.New(u.where(nil), "value is nil")
	case Typed:
		d := x.Dtype()
		if !d.Valid() {
			return Descriptor{}, ErrUnknownType.New(u.where(nil), "declared type "+d.String()+" is not valid")
		}
		return d, nil
	case StringSampler:
		samples, err := x.SampleStrings(ctx, o.sampleSize)
		if err != nil {
			return Descriptor{}, fmt.Errorf("sample strings at %s: %w", u.where(nil), err)
		}
		if err := u.observe(Descriptor{Kind: String}, nil); err != nil {
			return Descriptor{}, err
		}
		for _, s := range samples {
			u.sample(len(s))
		}
		// A full sample may not have seen the whole column.
		if o.sampleSize > 0 && len(samples) >= o.sampleSize {
			u.truncated = true
		}
		return u.result()
	}

	if err := u.visit(reflect.ValueOf(v), nil); err != nil {
		return Descriptor{}, err
	}
	return u.result()
}

type unifier struct {
	opts    inferOptions
	kind    Kind
	size    uint64
	first   string
	sampled int

	// truncated is set once an element is left out of the sample.
	truncated bool
}

func (u *unifier) visit(v reflect.Value, path []int) error {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return u.visit(v.Elem(), path)

	case reflect.Slice, reflect.Array:
		// A byte slice nested in an untyped sequence is a bytes leaf.
		if path != nil && v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			if err := u.observe(Descriptor{Kind: Bytes}, path); err != nil {
				return err
			}
			u.sample(v.Len())
			return nil
		}

		leaf := leafType(v.Type())
		if leaf.Kind() != reflect.Interface {
			d, ok := declared(leaf)
			if !ok {
				return ErrUnknownType.New(u.where(path), "unsupported element type "+leaf.String())
			}
			if err := u.observe(d, path); err != nil {
				return err
			}
			if d.IsVariableLength() {
				u.sampleTyped(v)
			}
			return nil
		}

		for i := 0; i < v.Len(); i++ {
			if err := u.visit(v.Index(i), append(path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	d, ok := declared(v.Type())
	if !ok {
		return ErrUnknownType.New(u.where(path), "unsupported element type "+v.Type().String())
	}
	if err := u.observe(d, path); err != nil {
		return err
	}
	if d.Kind == String {
		u.sample(len(v.String()))
	}
	return nil
}

// sampleTyped measures strings of a typed container until the sample is full.
func (u *unifier) sampleTyped(v reflect.Value) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		i := 0
		for ; i < v.Len() && u.sampled < u.opts.sampleSize; i++ {
			u.sampleTyped(v.Index(i))
		}
		if i < v.Len() {
			u.truncated = true
		}
	case reflect.Pointer:
		if !v.IsNil() {
			u.sampleTyped(v.Elem())
		}
	case reflect.String:
		u.sample(v.Len())
	}
}

func (u *unifier) observe(d Descriptor, path []int) error {
	name := typeName(d)
	if u.kind == Invalid {
		u.kind = d.Kind
		u.first = name
	} else if u.kind != d.Kind {
		return ErrTypeConflict.New(u.first, name, u.where(path))
	}
	if !d.IsVariableLength() && d.Size > u.size {
		u.size = d.Size
	}
	return nil
}

func (u *unifier) sample(n int) {
	if u.sampled >= u.opts.sampleSize {
		u.truncated = true
		return
	}
	u.sampled++
	if uint64(n) > u.size {
		u.size = uint64(n)
	}
}

func (u *unifier) result() (Descriptor, error) {
	if u.kind == Invalid {
		return Descriptor{}, ErrUnknownType.New(u.where(nil), "no non-null elements")
	}
	d := Descriptor{Kind: u.kind, Size: u.size}
	if d.IsVariableLength() {
		switch {
		case u.sampled == 0:
			d.Size = u.opts.defaultStringSize
			d.Provisional = true
		case d.Size == 0:
			d.Size = 1
		}
		if u.truncated {
			d.Provisional = true
		}
	}
	return d, nil
}

func (u *unifier) where(path []int) string {
	var sb strings.Builder
	sb.WriteString(u.opts.location)
	for _, i := range path {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(']')
	}
	if sb.Len() == 0 {
		return "value"
	}
	return sb.String()
}

func typeName(d Descriptor) string {
	if d.IsVariableLength() {
		return d.Kind.String()
	}
	return d.String()
}
