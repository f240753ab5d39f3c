package endpoint

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultFieldLimit bounds a field value when no maxLength tag is given.
var defaultFieldLimit = 16 * 1024

// Unmarshal populates dst, a non-nil pointer to a struct, from the request.
//
// Supported struct tags:
//   - `path:"name"`: r.PathValue(name)
//   - `query:"name"`: first value of r.URL.Query()[name]
//   - `header:"name"`: first value of r.Header[name]
//   - `body:""`: the request body; add `,json` to decode it as JSON
//   - `maxLength:"n"`: byte limit for the value; "0" disables the limit
//
// An empty name defaults to the lowercased field name. A missing value leaves
// the field unchanged. Values over the limit, 16KB by default, fail with 400.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return newEndpointError(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return newEndpointError(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return newEndpointError(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct"))
	}

	t := root.Type()
	bodySeen := ""
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		tag, ok, err := sourceOf(sf)
		if err != nil {
			return newEndpointError(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}
		if !ok {
			continue
		}
		if tag.source == "body" {
			if bodySeen != "" {
				return newEndpointError(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields: %s and %s", bodySeen, sf.Name))
			}
			bodySeen = sf.Name
		}

		raw, present, err := fetch(r, tag)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if tag.limit > 0 && len(raw) > tag.limit {
			return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: field %s exceeds %d bytes", sf.Name, tag.limit))
		}
		if err := setField(root.Field(i), raw, tag.json); err != nil {
			return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}
	}
	return nil
}

type sourceTag struct {
	source string
	name   string
	json   bool
	limit  int
}

var sources = []string{"path", "query", "header", "body"}

func sourceOf(sf reflect.StructField) (sourceTag, bool, error) {
	for _, src := range sources {
		val, ok := sf.Tag.Lookup(src)
		if !ok {
			continue
		}
		parts := strings.Split(val, ",")
		tag := sourceTag{source: src, name: strings.TrimSpace(parts[0]), limit: defaultFieldLimit}
		if tag.name == "-" {
			return sourceTag{}, false, nil
		}
		if tag.name == "" {
			tag.name = strings.ToLower(sf.Name)
		}
		for _, flag := range parts[1:] {
			switch strings.TrimSpace(flag) {
			case "":
			case "json":
				tag.json = true
			default:
				return sourceTag{}, false, fmt.Errorf("unknown flag %q", flag)
			}
		}
		if ml, has := sf.Tag.Lookup("maxLength"); has {
			n := 0
			if ml = strings.TrimSpace(ml); ml != "" {
				var err error
				if n, err = strconv.Atoi(ml); err != nil || n < 0 {
					return sourceTag{}, false, fmt.Errorf("maxLength: invalid value %q", ml)
				}
			}
			tag.limit = n
		}
		return tag, true, nil
	}
	return sourceTag{}, false, nil
}

func fetch(r *http.Request, tag sourceTag) ([]byte, bool, error) {
	switch tag.source {
	case "path":
		s := r.PathValue(tag.name)
		return []byte(s), s != "", nil
	case "query":
		if r.URL == nil {
			return nil, false, nil
		}
		values, ok := r.URL.Query()[tag.name]
		if !ok || len(values) == 0 {
			return nil, false, nil
		}
		return []byte(values[0]), true, nil
	case "header":
		values := r.Header[http.CanonicalHeaderKey(tag.name)]
		if len(values) == 0 {
			return nil, false, nil
		}
		return []byte(values[0]), true, nil
	case "body":
		if r.Body == nil || r.Body == http.NoBody {
			return nil, false, nil
		}
		body := io.Reader(r.Body)
		if tag.limit > 0 {
			// One extra byte so an oversized body is detected rather than truncated.
			body = io.LimitReader(r.Body, int64(tag.limit)+1)
		}
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, false, newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
		}
		return b, true, nil
	}
	return nil, false, nil
}

func setField(v reflect.Value, b []byte, asJSON bool) error {
	if asJSON {
		return json.Unmarshal(b, v.Addr().Interface())
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	if tu, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return tu.UnmarshalText(b)
	}

	s := string(b)
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Slice:
		if v.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("unsupported type %s", v.Type())
		}
		v.SetBytes(append([]byte(nil), b...))
	case reflect.Bool:
		x, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(x)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(x)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		x, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(x)
	case reflect.Float32, reflect.Float64:
		x, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(x)
	default:
		return fmt.Errorf("unsupported type %s", v.Type())
	}
	return nil
}
