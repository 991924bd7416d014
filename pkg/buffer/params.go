package buffer

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"

	"github.com/google/go-querystring/query"
)

// AccessTokenParam is the parameter carrying the OAuth access token on every call.
const AccessTokenParam = "access_token"

// ErrUnsupportedParams is returned when call data is neither a map, url.Values nor a struct.
var ErrUnsupportedParams = errors.New("unsupported call parameters")

// Params is the data sent with a call. Values may be scalars, slices or nested maps;
// slices of scalars encode as key[]=v and nested values as key[sub]=v.
type Params map[string]any

// encodeParams flattens call data into form values.
// Structs are encoded with go-querystring using their `url` tags.
func encodeParams(data any) (url.Values, error) {
	switch d := data.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		out := make(url.Values, len(d))
		for k, v := range d {
			out[k] = append([]string(nil), v...)
		}
		return out, nil
	case Params:
		return encodeMap(map[string]any(d))
	case map[string]any:
		return encodeMap(d)
	case map[string]string:
		out := make(url.Values, len(d))
		for k, v := range d {
			out.Set(k, v)
		}
		return out, nil
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return url.Values{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedParams, data)
	}
	vals, err := query.Values(data)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %T: %w", ErrUnsupportedParams, data, err)
	}
	return vals, nil
}

func encodeMap(m map[string]any) (url.Values, error) {
	out := url.Values{}
	for _, k := range sortedKeys(m) {
		if err := encodeValue(out, k, reflect.ValueOf(m[k])); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func encodeValue(out url.Values, key string, v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		out.Add(key, v.String())
	case reflect.Bool:
		out.Add(key, strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.Add(key, strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out.Add(key, strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		out.Add(key, strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits()))
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			sub := key + "[]"
			if isComposite(elem) {
				sub = key + "[" + strconv.Itoa(i) + "]"
			}
			if err := encodeValue(out, sub, elem); err != nil {
				return err
			}
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map key %s for %q", ErrUnsupportedParams, v.Type().Key(), key)
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, mk := range keys {
			if err := encodeValue(out, key+"["+mk.String()+"]", v.MapIndex(mk)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %s for %q", ErrUnsupportedParams, v.Kind(), key)
	}
	return nil
}

func isComposite(v reflect.Value) bool {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
