package dbusrt

import (
	"fmt"
	"reflect"

	"github.com/dbusgen/dbusgen/dbustype"
)

// AppendVariant appends v's signature followed by its dynamically typed
// value. Any complete D-Bus type is supported, not just the basic
// scalars: an array, struct, dict-entry array or nested variant payload
// recurses through reflection the same way gen/marshal's generated
// composers recurse through the type tree at compile time, so a
// compound-typed property or method argument carried inside a variant
// (e.g. the "a{sv}" property dictionaries ObjectManager.
// GetManagedObjects returns) marshals correctly instead of failing.
func AppendVariant(it *Iter, v Variant) error {
	sig := v.Sig
	if sig == "" {
		s, err := signatureOfType(reflect.TypeOf(v.Value))
		if err != nil {
			return fmt.Errorf("dbusrt: AppendVariant: %w", err)
		}
		sig = s
	}
	if err := it.AppendSignature(sig); err != nil {
		return err
	}
	t, err := dbustype.Parse(string(sig))
	if err != nil {
		return fmt.Errorf("dbusrt: AppendVariant: signature %q: %w", sig, err)
	}
	return appendValue(it, t, v.Value)
}

// ExtractVariant reads a variant's signature followed by its value,
// recursing into array, struct and dict-entry-array payloads the same
// way AppendVariant does. The returned Value's dynamic type matches
// whatever dbustype.Type.GoType would have generated for this
// signature as an ordinary (non-variant) argument: scalars and strings
// as their native Go type, "a{..}" as a map, "a.." as a slice, and "(..)"
// as an anonymous struct built at runtime with reflect.StructOf.
func ExtractVariant(it *Iter) (Variant, error) {
	sig, err := it.ExtractVariantSignature()
	if err != nil {
		return Variant{}, err
	}
	t, err := dbustype.Parse(string(sig))
	if err != nil {
		return Variant{}, fmt.Errorf("dbusrt: ExtractVariant: signature %q: %w", sig, err)
	}
	val, err := extractValue(it, t)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Sig: sig, Value: val}, nil
}

// basic reflect.Type samples for the scalar and string-like wire types,
// used both to compute a signature from a Go value's dynamic type and to
// build the reflect.Type a compound value's elements are read into.
var (
	byteType       = reflect.TypeOf(byte(0))
	boolType       = reflect.TypeOf(false)
	int16Type      = reflect.TypeOf(int16(0))
	uint16Type     = reflect.TypeOf(uint16(0))
	int32Type      = reflect.TypeOf(int32(0))
	uint32Type     = reflect.TypeOf(uint32(0))
	int64Type      = reflect.TypeOf(int64(0))
	uint64Type     = reflect.TypeOf(uint64(0))
	float64Type    = reflect.TypeOf(float64(0))
	stringType     = reflect.TypeOf("")
	objectPathType = reflect.TypeOf(ObjectPath(""))
	signatureType  = reflect.TypeOf(Signature(""))
	fdType         = reflect.TypeOf(FD{})
	variantType    = reflect.TypeOf(Variant{})
)

// signatureOfType computes the D-Bus signature for rt, the reflect.Type
// of a variant payload whose Sig was left blank by the caller. It works
// from the type rather than a sample value so an empty slice or map
// still yields a correct element/key/value signature.
func signatureOfType(rt reflect.Type) (Signature, error) {
	switch rt {
	case objectPathType:
		return "o", nil
	case signatureType:
		return "g", nil
	case fdType:
		return "h", nil
	case variantType:
		return "v", nil
	}
	switch rt.Kind() {
	case reflect.Uint8:
		return "y", nil
	case reflect.Bool:
		return "b", nil
	case reflect.Int16:
		return "n", nil
	case reflect.Uint16:
		return "q", nil
	case reflect.Int32:
		return "i", nil
	case reflect.Uint32:
		return "u", nil
	case reflect.Int64:
		return "x", nil
	case reflect.Uint64:
		return "t", nil
	case reflect.Float64:
		return "d", nil
	case reflect.String:
		return "s", nil
	case reflect.Slice:
		elem, err := signatureOfType(rt.Elem())
		if err != nil {
			return "", err
		}
		return "a" + elem, nil
	case reflect.Map:
		key, err := signatureOfType(rt.Key())
		if err != nil {
			return "", err
		}
		val, err := signatureOfType(rt.Elem())
		if err != nil {
			return "", err
		}
		return "a{" + key + val + "}", nil
	case reflect.Struct:
		sig := Signature("(")
		for i := 0; i < rt.NumField(); i++ {
			f, err := signatureOfType(rt.Field(i).Type)
			if err != nil {
				return "", err
			}
			sig += f
		}
		return sig + ")", nil
	default:
		return "", fmt.Errorf("no signature for variant value of type %s", rt)
	}
}

// goType returns the reflect.Type ExtractVariant builds a value of t in,
// mirroring dbustype.Type.GoType's compile-time convention at runtime:
// an anonymous struct's fields are named F0, F1, ... in declaration
// order, built fresh with reflect.StructOf (which returns the same
// unnamed struct type for any two calls with identical field layouts, so
// two variants with the same struct signature produce assignable values).
func goType(t *dbustype.Type) (reflect.Type, error) {
	switch t.Kind() {
	case dbustype.Byte:
		return byteType, nil
	case dbustype.Boolean:
		return boolType, nil
	case dbustype.Int16:
		return int16Type, nil
	case dbustype.Uint16:
		return uint16Type, nil
	case dbustype.Int32:
		return int32Type, nil
	case dbustype.Uint32:
		return uint32Type, nil
	case dbustype.Int64:
		return int64Type, nil
	case dbustype.Uint64:
		return uint64Type, nil
	case dbustype.Double:
		return float64Type, nil
	case dbustype.String:
		return stringType, nil
	case dbustype.ObjectPath:
		return objectPathType, nil
	case dbustype.Signature:
		return signatureType, nil
	case dbustype.UnixFD:
		return fdType, nil
	case dbustype.Variant:
		return variantType, nil
	case dbustype.Array:
		if t.IsDictArray() {
			key, err := goType(t.Elem.Key)
			if err != nil {
				return nil, err
			}
			val, err := goType(t.Elem.Elem)
			if err != nil {
				return nil, err
			}
			return reflect.MapOf(key, val), nil
		}
		elem, err := goType(t.Elem)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case dbustype.Struct:
		fields := make([]reflect.StructField, len(t.Fields))
		for i, f := range t.Fields {
			ft, err := goType(f)
			if err != nil {
				return nil, err
			}
			fields[i] = reflect.StructField{Name: fmt.Sprintf("F%d", i), Type: ft}
		}
		return reflect.StructOf(fields), nil
	default:
		return nil, fmt.Errorf("no Go type for kind %v", t.Kind())
	}
}

// appendValue appends val, of type t, onto it. It is AppendVariant's
// recursive counterpart to gen/marshal's generated composer, walking the
// same type tree at runtime via reflection instead of at code-generation
// time.
func appendValue(it *Iter, t *dbustype.Type, val any) error {
	switch t.Kind() {
	case dbustype.Byte:
		return it.AppendByte(val.(byte))
	case dbustype.Boolean:
		return it.AppendBool(val.(bool))
	case dbustype.Int16:
		return it.AppendInt16(val.(int16))
	case dbustype.Uint16:
		return it.AppendUint16(val.(uint16))
	case dbustype.Int32:
		return it.AppendInt32(val.(int32))
	case dbustype.Uint32:
		return it.AppendUint32(val.(uint32))
	case dbustype.Int64:
		return it.AppendInt64(val.(int64))
	case dbustype.Uint64:
		return it.AppendUint64(val.(uint64))
	case dbustype.Double:
		return it.AppendDouble(val.(float64))
	case dbustype.String:
		return it.AppendString(val.(string))
	case dbustype.ObjectPath:
		return it.AppendString(string(val.(ObjectPath)))
	case dbustype.Signature:
		return it.AppendSignature(val.(Signature))
	case dbustype.UnixFD:
		return it.AppendFD(val.(FD))
	case dbustype.Variant:
		vv, ok := val.(Variant)
		if !ok {
			return fmt.Errorf("dbusrt: variant element has non-Variant type %T", val)
		}
		return AppendVariant(it, vv)
	case dbustype.Array:
		return appendArray(it, t, val)
	case dbustype.Struct:
		return appendStruct(it, t, val)
	default:
		return fmt.Errorf("dbusrt: unsupported variant element kind %v", t.Kind())
	}
}

func appendArray(it *Iter, t *dbustype.Type, val any) error {
	rv := reflect.ValueOf(val)
	if err := it.OpenArray(); err != nil {
		return err
	}
	if err := it.AppendUint32(uint32(rv.Len())); err != nil {
		return err
	}
	if t.IsDictArray() {
		iter := rv.MapRange()
		for iter.Next() {
			if err := it.OpenDictEntry(); err != nil {
				return err
			}
			if err := appendValue(it, t.Elem.Key, iter.Key().Interface()); err != nil {
				return err
			}
			if err := appendValue(it, t.Elem.Elem, iter.Value().Interface()); err != nil {
				return err
			}
			if err := it.CloseDictEntry(); err != nil {
				return err
			}
		}
	} else {
		for i := 0; i < rv.Len(); i++ {
			if err := appendValue(it, t.Elem, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return it.CloseArray()
}

func appendStruct(it *Iter, t *dbustype.Type, val any) error {
	rv := reflect.ValueOf(val)
	if err := it.OpenStruct(); err != nil {
		return err
	}
	for i, f := range t.Fields {
		if err := appendValue(it, f, rv.Field(i).Interface()); err != nil {
			return err
		}
	}
	return it.CloseStruct()
}

// extractValue reads a value of type t off it. It is ExtractVariant's
// recursive counterpart to gen/demarshal's generated composer.
func extractValue(it *Iter, t *dbustype.Type) (any, error) {
	switch t.Kind() {
	case dbustype.Byte:
		return it.ExtractByte()
	case dbustype.Boolean:
		return it.ExtractBool()
	case dbustype.Int16:
		return it.ExtractInt16()
	case dbustype.Uint16:
		return it.ExtractUint16()
	case dbustype.Int32:
		return it.ExtractInt32()
	case dbustype.Uint32:
		return it.ExtractUint32()
	case dbustype.Int64:
		return it.ExtractInt64()
	case dbustype.Uint64:
		return it.ExtractUint64()
	case dbustype.Double:
		return it.ExtractDouble()
	case dbustype.String:
		return it.ExtractString()
	case dbustype.ObjectPath:
		s, err := it.ExtractString()
		return ObjectPath(s), err
	case dbustype.Signature:
		return it.ExtractSignature()
	case dbustype.UnixFD:
		return it.ExtractFD()
	case dbustype.Variant:
		return ExtractVariant(it)
	case dbustype.Array:
		return extractArray(it, t)
	case dbustype.Struct:
		return extractStruct(it, t)
	default:
		return nil, fmt.Errorf("dbusrt: unsupported variant element kind %v", t.Kind())
	}
}

func extractArray(it *Iter, t *dbustype.Type) (any, error) {
	if err := it.OpenArray(); err != nil {
		return nil, err
	}
	n, err := it.ExtractUint32()
	if err != nil {
		return nil, err
	}
	if t.IsDictArray() {
		keyType, err := goType(t.Elem.Key)
		if err != nil {
			return nil, err
		}
		valType, err := goType(t.Elem.Elem)
		if err != nil {
			return nil, err
		}
		m := reflect.MakeMapWithSize(reflect.MapOf(keyType, valType), int(n))
		for i := uint32(0); i < n; i++ {
			if err := it.OpenDictEntry(); err != nil {
				return nil, err
			}
			k, err := extractValue(it, t.Elem.Key)
			if err != nil {
				return nil, err
			}
			v, err := extractValue(it, t.Elem.Elem)
			if err != nil {
				return nil, err
			}
			if err := it.CloseDictEntry(); err != nil {
				return nil, err
			}
			m.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
		}
		if err := it.CloseArray(); err != nil {
			return nil, err
		}
		return m.Interface(), nil
	}

	elemType, err := goType(t.Elem)
	if err != nil {
		return nil, err
	}
	s := reflect.MakeSlice(reflect.SliceOf(elemType), 0, int(n))
	for i := uint32(0); i < n; i++ {
		v, err := extractValue(it, t.Elem)
		if err != nil {
			return nil, err
		}
		s = reflect.Append(s, reflect.ValueOf(v))
	}
	if err := it.CloseArray(); err != nil {
		return nil, err
	}
	return s.Interface(), nil
}

func extractStruct(it *Iter, t *dbustype.Type) (any, error) {
	if err := it.OpenStruct(); err != nil {
		return nil, err
	}
	structType, err := goType(t)
	if err != nil {
		return nil, err
	}
	out := reflect.New(structType).Elem()
	for i, f := range t.Fields {
		v, err := extractValue(it, f)
		if err != nil {
			return nil, err
		}
		out.Field(i).Set(reflect.ValueOf(v))
	}
	if err := it.CloseStruct(); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}
